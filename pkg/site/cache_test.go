package site

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDirectory records the IDs each lookup was asked for
type countingDirectory struct {
	*Memory
	asked [][]int64
	fail  bool
}

func (d *countingDirectory) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	d.asked = append(d.asked, ids)
	if d.fail {
		return nil, errors.New("connection reset")
	}
	return d.Memory.DisplayNames(ctx, ids)
}

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()
	next := &countingDirectory{Memory: seededMemory()}
	c := NewCachedDirectory(next, 0, time.Minute)

	names, err := c.DisplayNames(ctx, []int64{1, 77})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Ada Admin"}, names)

	// 1 is cached, 77 is still unknown and asked again
	names, err = c.DisplayNames(ctx, []int64{1, 77})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Ada Admin"}, names)
	assert.Equal(t, [][]int64{{1, 77}, {77}}, next.asked)

	// Fully cached lookups don't reach the directory
	_, err = c.DisplayNames(ctx, []int64{1})
	require.NoError(t, err)
	assert.Len(t, next.asked, 2)

	next.fail = true
	_, err = c.DisplayNames(ctx, []int64{9})
	assert.Error(t, err)
}

func TestCachedDirectoryLoginsAndTitles(t *testing.T) {
	ctx := context.Background()
	c := NewCachedDirectory(seededMemory(), 8, 0)

	logins, err := c.Logins(ctx, []int64{5, 9})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{5: "copyeditor", 9: "writer"}, logins)

	titles, err := c.PostTitles(ctx, []int64{42, 43})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{42: "Prof spotted in MC"}, titles)
}
