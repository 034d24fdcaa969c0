package utils

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/iancoleman/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCommandLine(t *testing.T) {
	data := struct{ Port int }{Port: 8000}

	cmd, args, err := GetCommandLine("/opt/ngrok", []string{"http", "{{.Port}}", " "}, data)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ngrok", cmd)
	assert.Equal(t, []string{"http", "8000"}, args)

	_, _, err = GetCommandLine("ngrok", []string{"{{.Missing}}"}, data)
	assert.Error(t, err)
}

func TestParseToolVersion(t *testing.T) {
	ver, err := ParseToolVersion("ngrok version 3.5.0\n")
	require.NoError(t, err)
	assert.Equal(t, "3.5.0", ver.String())

	ver, err = ParseToolVersion("agent v2.3.41")
	require.NoError(t, err)
	assert.Equal(t, "2.3.41", ver.String())

	_, err = ParseToolVersion("command not found")
	assert.Error(t, err)
}

func TestPath2ProcessName(t *testing.T) {
	assert.Equal(t, "ngrok", Path2ProcessName("/usr/local/bin/ngrok"))
	assert.Equal(t, "ngrok", Path2ProcessName(`C:\tools\ngrok.exe`))
	assert.Equal(t, "ngrok", Path2ProcessName("ngrok"))
}

func TestIsPortListening(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	assert.True(t, IsPortListening(port))

	l.Close()
	assert.False(t, IsPortListening(port))
}

func TestGetFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "ngrok.zip")
	require.NoError(t, GetFile(context.Background(), srv.Client(), srv.URL+"/ngrok.zip", nil, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))

	err = GetFile(context.Background(), srv.Client(), srv.URL+"/missing", nil, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSaveExecutableReplacesTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ngrok")

	require.NoError(t, SaveExecutable(strings.NewReader("v1"), target))
	require.NoError(t, SaveExecutable(strings.NewReader("v2"), target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

type row struct {
	Name  string   `json:"name"`
	Port  int      `json:"port"`
	Items []string `json:"items"`
}

func TestPrintFormat(t *testing.T) {
	var rows []*orderedmap.OrderedMap
	for _, r := range []row{{"api", 8000, []string{"a", "b"}}, {"web", 3000, nil}} {
		om, err := StructToOrderedMap(r)
		require.NoError(t, err)
		rows = append(rows, om)
	}
	assert.Equal(t, []string{"name", "port", "items"}, rows[0].Keys())

	var buf bytes.Buffer
	require.NoError(t, PrintFormat(&buf, "table", rows))
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "8000")
	assert.Contains(t, out, "a,b")
	assert.Less(t, strings.Index(out, "NAME"), strings.Index(out, "PORT"))

	buf.Reset()
	require.NoError(t, PrintFormat(&buf, "json", rows))
	assert.JSONEq(t, `[{"name":"api","port":8000,"items":["a","b"]},{"name":"web","port":3000,"items":null}]`, buf.String())

	buf.Reset()
	require.NoError(t, PrintFormat(&buf, "yaml", rows))
	assert.Contains(t, buf.String(), "- name: api")
	assert.Less(t, strings.Index(buf.String(), "name: api"), strings.Index(buf.String(), "port: 8000"))

	assert.Error(t, PrintFormat(&buf, "xml", rows))
}
