package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The JSON field names are the contract with the workers consuming these
// messages; renaming a struct field must not change the wire format.
func TestEmailJobWireFormat(t *testing.T) {
	job := EmailJob{
		To:      "ada@example.com",
		Subject: "Confirm your email address - Koru App",
		Payload: ConfirmEmailPayload{
			Name:             "Ada",
			Type:             "signup",
			ConfirmationLink: "https://koru.test/api/auth/confirm-email/abc",
			ExpirationHours:  24,
		},
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"to": "ada@example.com",
		"subject": "Confirm your email address - Koru App",
		"payload": {
			"name": "Ada",
			"type": "signup",
			"confirmationLink": "https://koru.test/api/auth/confirm-email/abc",
			"expirationHours": 24
		}
	}`, string(data))
}

func TestEnrichmentTaskWireFormat(t *testing.T) {
	data, err := json.Marshal(EnrichmentTask{AccountID: "acc-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"account_id":"acc-1"}`, string(data))
}
