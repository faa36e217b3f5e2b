package page

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomePage_EscapesAndListsChores(t *testing.T) {
	var buf bytes.Buffer
	err := HomePage("a@x.com", []string{"Prádlo", "<b>Vynést koš</b>"}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, `data-task="Prádlo"`)
	assert.Contains(t, out, "&lt;b&gt;Vynést koš&lt;/b&gt;")
	assert.NotContains(t, out, "<b>Vynést")
	assert.Contains(t, out, "/static/js/app.js")
}

func TestLoginPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LoginPage().Render(context.Background(), &buf))

	assert.Contains(t, buf.String(), `id="login-form"`)
	assert.Contains(t, buf.String(), "/static/js/login.js")
}
