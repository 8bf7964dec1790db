package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "datagram", d.Receiver.Kind)
	assert.Equal(t, "127.0.0.1:6788", d.Receiver.Bind)
	assert.Equal(t, "127.0.0.1:6789", d.Sender.Target)
	assert.Equal(t, 30, d.PublishTimerSeconds)
	assert.True(t, d.AutoAddBroadcast)
	assert.True(t, d.AutoAddZeroed)
	assert.False(t, d.ClearAfterDump)
}

func TestLoadFromExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	doc := []byte("publish_timer: 45\nauto_add_zeroed: false\nreceiver:\n  kind: bus\n  bus:\n    hosts: [\"a:1\", \"b:2\"]\n    topic: ips\n    group: g1\n")
	assert.NoError(t, os.WriteFile(path, doc, 0o600))

	s := Load(path)
	assert.Equal(t, 45, s.PublishTimerSeconds)
	assert.False(t, s.AutoAddZeroed)
	assert.True(t, s.AutoAddBroadcast, "unset fields keep their default")
	assert.Equal(t, "bus", s.Receiver.Kind)
	assert.Equal(t, []string{"a:1", "b:2"}, s.Receiver.Bus.Hosts)
}

func TestLoadFallsBackToDefaultsWhenNothingExists(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, Defaults(), s)
}

func TestLoadFallsBackOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o600))

	s := Load(path)
	assert.Equal(t, Defaults(), s)
}
