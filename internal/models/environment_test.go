package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchPayloadWireFormat(t *testing.T) {
	req := &EnvironmentRequest{
		Variant:       VariantBranch,
		Developer:     "alice",
		Services:      []string{"api", "web"},
		Branch:        "feature/login",
		PublicAddress: "abcd.ngrok.app",
	}
	data, err := json.Marshal(req.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"developer":"alice","local_services":["api","web"],"ngrok_endpoint":"abcd.ngrok.app","branch":"feature/login"}`, string(data))
}

func TestBackendPayloadWireFormat(t *testing.T) {
	req := &EnvironmentRequest{
		Variant:     VariantBackend,
		Environment: "qa-2",
		Ephemeral:   false,
	}
	data, err := json.Marshal(req.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"environment":"qa-2","services_to_deploy":[]}`, string(data))
}
