package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewChange_DefaultsToInteractive(t *testing.T) {
	change := NewChange("alice", "Alice Martin", "")
	assert.Equal(t, OriginInteractive, change.Origin)
	assert.NoError(t, change.Validate())

	assert.Equal(t, OriginImport, NewChange("alice", "", OriginImport).Origin)
}

func TestChangeOpKinds(t *testing.T) {
	tests := []struct {
		opType       OpType
		attributeSet bool
		caseLog      bool
	}{
		{OpCreate, false, false},
		{OpDelete, false, false},
		{OpSetAttributeScalar, true, false},
		{OpSetAttributeText, true, false},
		{OpSetAttributeCaseLog, false, true},
		{OpPlugin, false, false},
	}

	for _, test := range tests {
		t.Run(string(test.opType), func(t *testing.T) {
			op := &ChangeOp{OpType: test.opType}
			assert.Equal(t, test.attributeSet, op.IsAttributeSet())
			assert.Equal(t, test.caseLog, op.IsCaseLog())
		})
	}
}
