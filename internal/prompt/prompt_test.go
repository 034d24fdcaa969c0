package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var services = []string{"api", "web", "worker"}

func TestParseChoice(t *testing.T) {
	got, err := ParseChoice("2", services)
	require.NoError(t, err)
	assert.Equal(t, "web", got)

	got, err = ParseChoice(" worker ", services)
	require.NoError(t, err)
	assert.Equal(t, "worker", got)

	for _, bad := range []string{"", "0", "4", "db", "Web"} {
		_, err := ParseChoice(bad, services)
		assert.ErrorIs(t, err, ErrInvalidSelection, bad)
	}
}

func TestParseMultiChoice(t *testing.T) {
	got, err := ParseMultiChoice("3, api", services)
	require.NoError(t, err)
	assert.Equal(t, []string{"worker", "api"}, got)

	tests := map[string]string{
		"duplicate number":  "1,1",
		"duplicate by name": "1,api",
		"out of range":      "1,7",
		"unknown name":      "api,db",
		"empty":             " , ",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMultiChoice(input, services)
			assert.ErrorIs(t, err, ErrInvalidSelection)
		})
	}
}

func TestChooseOneRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("9\nnope\nweb\n"), &out)

	got, err := p.ChooseOne("Select branch", services)
	require.NoError(t, err)
	assert.Equal(t, "web", got)
	assert.Equal(t, 3, strings.Count(out.String(), "Select a number or name"))
	assert.Contains(t, out.String(), "1.")
}

func TestChooseManyRejectsDuplicates(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("1,1\n1,2\n"), &out)

	got, err := p.ChooseMany("Services", services)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web"}, got)
	assert.Contains(t, out.String(), "more than once")
}

func TestChooseEmptyOptions(t *testing.T) {
	p := New(strings.NewReader(""), io.Discard)
	_, err := p.ChooseOne("Branches", nil)
	assert.ErrorIs(t, err, ErrNoOptions)
	_, err = p.ChooseMany("Services", []string{})
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestConfirm(t *testing.T) {
	p := New(strings.NewReader("maybe\nY\n"), io.Discard)
	ok, err := p.Confirm("Continue?")
	require.NoError(t, err)
	assert.True(t, ok)

	p = New(strings.NewReader("n"), io.Discard)
	ok, err = p.Confirm("Continue?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPromptEndOfInput(t *testing.T) {
	p := New(strings.NewReader("bogus\n"), io.Discard)
	_, err := p.ChooseOne("Branches", services)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	p = New(strings.NewReader(""), io.Discard)
	_, err = p.Confirm("Continue?")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestAskRequiresValue(t *testing.T) {
	p := New(strings.NewReader("\n  \nqa-7\n"), io.Discard)
	got, err := p.Ask("Environment name")
	require.NoError(t, err)
	assert.Equal(t, "qa-7", got)
}

func TestValidateSubset(t *testing.T) {
	assert.NoError(t, ValidateSubset("service", []string{"api", "worker"}, services))

	err := ValidateSubset("service", []string{"api", "db"}, services)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Contains(t, err.Error(), "db")

	assert.ErrorIs(t, ValidateSubset("service", []string{"api", "api"}, services), ErrInvalidSelection)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"api", "web"}, SplitList(" api, ,web,"))
	assert.Nil(t, SplitList(""))
}

func TestPromptCancelledWhileWaiting(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	p := New(r, io.Discard).WithContext(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := p.Confirm("Continue?")
		done <- err
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
