// Copyright 2015 Aleksandr Demakin. All rights reserved.

package shm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShmFsFromReader(t *testing.T) {
	mounts := `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
# a comment line
tmpfs /dev/shm tmpfs rw,nosuid,nodev 0 0
/dev/sda1 / ext4 rw,relatime 0 0
`
	assert.Equal(t, "/dev/shm/", shmFsFromReader(strings.NewReader(mounts)))
}

func TestShmFsFromReaderNoMatch(t *testing.T) {
	mounts := `proc /proc proc rw 0 0
/dev/sda1 / ext4 rw,relatime 0 0
`
	assert.Equal(t, "", shmFsFromReader(strings.NewReader(mounts)))
}

func TestShmName(t *testing.T) {
	name, err := shmName("obj")
	if assert.NoError(t, err) {
		assert.True(t, strings.HasSuffix(name, "/obj"))
	}
	name, err = shmName("/obj")
	if assert.NoError(t, err) {
		assert.True(t, strings.HasSuffix(name, "/obj"))
	}
	_, err = shmName("")
	assert.Error(t, err)
	_, err = shmName("a/b")
	assert.Error(t, err)
	_, err = shmName(strings.Repeat("a", 300))
	assert.Error(t, err)
}
