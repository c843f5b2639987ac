package mqtt

import "testing"

// TestTopics verifies the topic builders against the documented hierarchy.
func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"snapshot", Topics{}.CoreSnapshot(), "stackpark/core/snapshot"},
		{"command", Topics{}.CoreCommand(), "stackpark/core/command"},
		{"command result", Topics{}.CoreCommandResult(), "stackpark/core/command/result"},
		{"alert", Topics{}.CoreAlert("emergency"), "stackpark/core/alert/emergency"},
		{"transaction", Topics{}.CoreTransaction("tx-1", "completed"), "stackpark/core/transaction/tx-1/completed"},
		{"system status", Topics{}.SystemStatus(), "stackpark/system/status"},
		{"field inputs wildcard", Topics{}.AllFieldInputs(), "stackpark/field/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}
