// Package kvtest holds behavior checks every kv.Env implementation must pass.
package kvtest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/kv"
)

// Run exercises newEnv against the kv contract.
func Run(t *testing.T, newEnv func(t *testing.T) kv.Env) {
	t.Run("get put delete", func(t *testing.T) {
		env := newEnv(t)
		s, err := env.Open("basic")
		require.NoError(t, err)
		defer func() { _ = s.Close() }()

		_, err = s.Get([]byte("a"))
		require.ErrorIs(t, err, kv.ErrNotFound)
		require.ErrorIs(t, err, errs.ErrNotFound)

		require.NoError(t, s.PutIfAbsent([]byte("a"), []byte("1")))
		v, err := s.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), v)

		err = s.PutIfAbsent([]byte("a"), []byte("2"))
		require.ErrorIs(t, err, kv.ErrKeyExists)
		require.ErrorIs(t, err, errs.ErrAlreadyExists)

		v, err = s.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), v, "put-if-absent must not overwrite")

		require.NoError(t, s.Delete([]byte("a")))
		require.ErrorIs(t, s.Delete([]byte("a")), kv.ErrNotFound)
	})

	t.Run("cursor order", func(t *testing.T) {
		env := newEnv(t)
		s, err := env.Open("order")
		require.NoError(t, err)
		defer func() { _ = s.Close() }()

		keys := [][]byte{
			{0x00, 0x00, 0x00, 0x02},
			{0xff},
			{0x00, 0x00, 0x00, 0x01},
			{0x00, 0x00},
			[]byte("b"),
			[]byte("ab"),
		}
		for i, k := range keys {
			require.NoError(t, s.PutIfAbsent(k, []byte(fmt.Sprint(i))))
		}

		c, err := s.OpenCursor()
		require.NoError(t, err)
		defer func() { _ = c.Close() }()

		var got [][]byte
		k, _, ok, err := c.First()
		for ; ok && err == nil; k, _, ok, err = c.Next() {
			got = append(got, k)
		}
		require.NoError(t, err)
		require.Equal(t, [][]byte{
			{0x00, 0x00},
			{0x00, 0x00, 0x00, 0x01},
			{0x00, 0x00, 0x00, 0x02},
			[]byte("ab"),
			[]byte("b"),
			{0xff},
		}, got)

		// exhausted stays exhausted
		_, _, ok, err = c.Next()
		require.NoError(t, err)
		require.False(t, ok)

		// First rewinds
		k, v, ok, err := c.First()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte{0x00, 0x00}, k)
		require.Equal(t, []byte("3"), v)
	})

	t.Run("independent cursors", func(t *testing.T) {
		env := newEnv(t)
		s, err := env.Open("indep")
		require.NoError(t, err)
		defer func() { _ = s.Close() }()

		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, s.PutIfAbsent([]byte(k), []byte(k)))
		}
		c1, err := s.OpenCursor()
		require.NoError(t, err)
		c2, err := s.OpenCursor()
		require.NoError(t, err)
		defer func() { _ = c1.Close(); _ = c2.Close() }()

		k1, _, _, err := c1.First()
		require.NoError(t, err)
		k1, _, _, err = c1.Next()
		require.NoError(t, err)

		k2, _, _, err := c2.First()
		require.NoError(t, err)

		require.Equal(t, []byte("b"), k1)
		require.Equal(t, []byte("a"), k2)
	})

	t.Run("empty store", func(t *testing.T) {
		env := newEnv(t)
		s, err := env.Open("empty")
		require.NoError(t, err)
		defer func() { _ = s.Close() }()

		c, err := s.OpenCursor()
		require.NoError(t, err)
		defer func() { _ = c.Close() }()

		_, _, ok, err := c.First()
		require.NoError(t, err)
		require.False(t, ok)
		_, _, ok, err = c.Next()
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("closed cursor and store", func(t *testing.T) {
		env := newEnv(t)
		s, err := env.Open("closed")
		require.NoError(t, err)

		c, err := s.OpenCursor()
		require.NoError(t, err)
		require.NoError(t, c.Close())
		_, _, _, err = c.First()
		require.ErrorIs(t, err, errs.ErrInvalidState)

		require.NoError(t, s.Close())
		_, err = s.Get([]byte("x"))
		require.ErrorIs(t, err, kv.ErrClosed)
	})

	t.Run("stores are separate and removable", func(t *testing.T) {
		env := newEnv(t)
		a, err := env.Open("one")
		require.NoError(t, err)
		b, err := env.Open("two")
		require.NoError(t, err)

		require.NoError(t, a.PutIfAbsent([]byte("k"), []byte("a")))
		_, err = b.Get([]byte("k"))
		require.ErrorIs(t, err, kv.ErrNotFound)

		require.NoError(t, env.Remove("one"))
		require.ErrorIs(t, env.Remove("one"), kv.ErrNotFound)

		again, err := env.Open("one")
		require.NoError(t, err)
		_, err = again.Get([]byte("k"))
		require.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("closing the env closes its stores", func(t *testing.T) {
		env := newEnv(t)
		s, err := env.Open("shut")
		require.NoError(t, err)
		require.NoError(t, s.PutIfAbsent([]byte("k"), []byte("v")))
		c, err := s.OpenCursor()
		require.NoError(t, err)

		require.NoError(t, env.Close())

		_, err = s.Get([]byte("k"))
		require.ErrorIs(t, err, kv.ErrClosed)
		require.ErrorIs(t, s.PutIfAbsent([]byte("x"), []byte("y")), kv.ErrClosed)
		_, err = s.OpenCursor()
		require.ErrorIs(t, err, kv.ErrClosed)
		_, _, _, err = c.Next()
		require.ErrorIs(t, err, kv.ErrClosed)
		_, err = env.Open("shut")
		require.ErrorIs(t, err, kv.ErrClosed)
	})
}
