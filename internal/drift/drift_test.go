package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		actions []string
		want    Action
	}{
		{[]string{"create"}, ActionCreate},
		{[]string{"delete"}, ActionDelete},
		{[]string{"update"}, ActionUpdate},
		{[]string{"no-op"}, ActionNoop},
		{[]string{"read"}, ActionNoop},
		{[]string{}, ActionNoop},
		{nil, ActionNoop},
		{[]string{"create", "delete"}, ActionReplace},
		{[]string{"delete", "create"}, ActionReplace},
		{[]string{"update", "delete"}, ActionUpdate},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.actions), "actions=%v", tc.actions)
	}
}

func TestDiffSingleCreate(t *testing.T) {
	planJSON := []byte(`{
		"format_version": "1.2",
		"resource_changes": [
			{
				"address": "aws_s3_bucket.logs",
				"type": "aws_s3_bucket",
				"name": "logs",
				"provider_name": "registry.terraform.io/hashicorp/aws",
				"change": {
					"actions": ["create"],
					"before": null,
					"after": {"bucket": "corp-logs", "acl": "private"}
				}
			}
		]
	}`)

	result, err := Diff(planJSON)
	require.NoError(t, err)

	assert.Equal(t, map[Action]int{ActionCreate: 1}, result.Counts)
	require.Len(t, result.Changes, 1)

	ch := result.Changes[0]
	assert.Equal(t, "aws_s3_bucket.logs", ch.Address)
	assert.Equal(t, ActionCreate, ch.Action)
	assert.True(t, ch.Before.IsNull())

	bucket, ok := ch.After.Get("bucket")
	require.True(t, ok)
	name, _ := bucket.AsString()
	assert.Equal(t, "corp-logs", name)
}

func TestDiffCountsByAction(t *testing.T) {
	planJSON := []byte(`{
		"resource_changes": [
			{"address": "a.one", "change": {"actions": ["create"]}},
			{"address": "a.two", "change": {"actions": ["create", "delete"]}},
			{"address": "a.three", "change": {"actions": ["update"]}},
			{"address": "a.four", "change": {"actions": ["no-op"]}}
		]
	}`)

	result, err := Diff(planJSON)
	require.NoError(t, err)
	assert.Equal(t, map[Action]int{
		ActionCreate:  1,
		ActionReplace: 1,
		ActionUpdate:  1,
		ActionNoop:    1,
	}, result.Counts)
}

func TestDiffInvalidJSON(t *testing.T) {
	_, err := Diff([]byte(`{not json`))
	require.Error(t, err)

	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestDiffMissingResourceChanges(t *testing.T) {
	_, err := Diff([]byte(`{"format_version": "1.2"}`))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Detail, "resource_changes")
}

func TestDiffEmptyInput(t *testing.T) {
	_, err := Diff(nil)
	assert.Error(t, err)
}
