package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinks_PublicURL(t *testing.T) {
	l := Links{Base: "https://pub.example"}
	assert.Equal(t, "https://pub.example/foo.jpg", l.PublicURL("foo.jpg"))

	l = Links{Base: "https://pub.example/"}
	assert.Equal(t, "https://pub.example/img/foo.jpg", l.PublicURL("/img/foo.jpg"))
}

func TestLinks_KeyFromURL(t *testing.T) {
	l := Links{Base: "https://pub.example"}

	key, ok := l.KeyFromURL("https://pub.example/books/a.png")
	require.True(t, ok)
	assert.Equal(t, "books/a.png", key)

	_, ok = l.KeyFromURL("https://elsewhere.example/a.png")
	assert.False(t, ok)
	_, ok = l.KeyFromURL("https://pub.example/")
	assert.False(t, ok)
	_, ok = l.KeyFromURL("")
	assert.False(t, ok)
	_, ok = Links{}.KeyFromURL("https://pub.example/a.png")
	assert.False(t, ok)
}

func TestLinks_Resolve(t *testing.T) {
	l := Links{Base: "https://pub.example"}

	got, err := l.Resolve("foo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example/foo.jpg", got)

	got, err = l.Resolve("https://pub.example/books/foo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example/books/foo.jpg", got)

	for _, bad := range []string{"", "  ", "../etc/passwd", "a/./b", "https://evil.example/x.png"} {
		_, err := l.Resolve(bad)
		assert.ErrorIs(t, err, ErrBadReference, bad)
	}
}

func TestLinks_ResolveWithoutBase(t *testing.T) {
	_, err := Links{}.Resolve("foo.jpg")
	assert.ErrorIs(t, err, ErrNoPublicBase)
}

func TestCheckBase(t *testing.T) {
	assert.NoError(t, CheckBase("https://pub.example"))
	assert.NoError(t, CheckBase("http://localhost:9000/bucket/"))
	assert.ErrorIs(t, CheckBase(""), ErrNoPublicBase)
	assert.Error(t, CheckBase("/files"))
	assert.Error(t, CheckBase("ftp://pub.example"))
}

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("Books", "Mi Portada Ñandú.JPG")
	assert.True(t, strings.HasPrefix(key, "books/"), key)
	assert.True(t, strings.HasSuffix(key, "-mi-portada-nandu.jpg"), key)

	assert.NotEqual(t, NewObjectKey("", "a.pdf"), NewObjectKey("", "a.pdf"))
	assert.True(t, strings.HasSuffix(NewObjectKey("", "???.pdf"), "-file.pdf"))
}

func TestNewR2_Config(t *testing.T) {
	_, err := NewR2(R2Config{AccountID: "acc"})
	assert.Error(t, err)
	_, err = NewR2(R2Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewR2(R2Config{AccountID: "acc", Bucket: "b"})
	assert.ErrorIs(t, err, ErrNoPublicBase)
	_, err = NewR2(R2Config{AccountID: "acc", Bucket: "b", PublicBaseURL: "pub.example"})
	assert.Error(t, err)

	r, err := NewR2(R2Config{AccountID: "acc", Bucket: "b", PublicBaseURL: "https://pub.example", AccessKeyID: "k", SecretAccessKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example/x", r.PublicURL("x"))

	url, err := r.PresignPut(context.Background(), "books/x.png", "image/png", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://acc.r2.cloudflarestorage.com/b/books/x.png?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
}
