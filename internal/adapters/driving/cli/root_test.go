package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsBackend(t *testing.T) {
	assert.True(t, needsBackend(documentStoreCmd))
	assert.True(t, needsBackend(mcpServeCmd))
	assert.True(t, needsBackend(apiServeCmd))
	assert.True(t, needsBackend(cleanupCmd))
	assert.True(t, needsBackend(collectionsCmd))
	assert.False(t, needsBackend(versionCmd))
	assert.False(t, needsBackend(settingsShowCmd))
}

func TestRequireDocuments(t *testing.T) {
	defer setupTestServices(nil, nil)()
	documentService = nil
	assert.EqualError(t, requireDocuments(), "document service not configured")
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:8000", displayAddr(":8000"))
	assert.Equal(t, "0.0.0.0:8000", displayAddr("0.0.0.0:8000"))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:****@db:5432/docs", maskDSN("postgres://app:secret@db:5432/docs"))
	assert.Equal(t, "postgres://db/docs", maskDSN("postgres://db/docs"))
	assert.Equal(t, "host=db user=app", maskDSN("host=db user=app"))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-1...cdef", maskAPIKey("sk-1234567890abcdef"))
}
