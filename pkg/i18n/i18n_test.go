package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	assert.Equal(t, "Not found", T("en", "not_found"))
	assert.Equal(t, "Não encontrado", T("pt-BR", "not_found"))
	assert.Equal(t, "No encontrado", T("es", "not_found"))

	t.Run("base language fallback", func(t *testing.T) {
		assert.Equal(t, "Não encontrado", T("pt-PT", "not_found"))
	})

	t.Run("unknown locale falls back to english", func(t *testing.T) {
		assert.Equal(t, "Not found", T("de", "not_found"))
	})

	t.Run("unknown key is empty", func(t *testing.T) {
		assert.Equal(t, "", T("en", "no_such_key"))
	})
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("en"))
	assert.True(t, Supported("pt-BR"))
	assert.False(t, Supported("pt"))
	assert.False(t, Supported("de"))
}
