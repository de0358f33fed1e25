// Package cacheitem is an abstraction over the creation and restoration of a cache
package cacheitem

import (
	"archive/tar"
	"bufio"
	"crypto/sha512"
	"errors"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/vercel/turborepo-cache/internal/turbopath"
)

var (
	errMissingSymlinkTarget = errors.New("symlink restoration is delayed")
	errCycleDetected        = errors.New("links in the cache are cyclic")
	errTraversal            = errors.New("tar attempts to write outside of directory")
	errNameMalformed        = errors.New("file name is malformed")
	errNameWindowsUnsafe    = errors.New("file name is not Windows-safe")
	errUnsupportedFileType  = errors.New("attempted to restore unsupported file type")
)

// CacheItem is a `tar` utility with a little bit extra.
type CacheItem struct {
	// Path is the location on disk for the CacheItem.
	Path turbopath.AbsoluteSystemPath
	// Anchor is the position on disk at which the CacheItem will be restored.
	Anchor turbopath.AbsoluteSystemPath

	// For creation.
	tw         *tar.Writer
	zw         io.WriteCloser
	fileBuffer *bufio.Writer
	handle     *os.File
	compressed bool
}

// Close flushes and closes every layer of the write (or read) pipeline. It
// attempts to close all of them even if an early one fails, and reports
// every failure it encountered.
func (ci *CacheItem) Close() error {
	var result *multierror.Error

	if ci.tw != nil {
		if err := ci.tw.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if ci.zw != nil {
		if err := ci.zw.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if ci.fileBuffer != nil {
		if err := ci.fileBuffer.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if ci.handle != nil {
		if err := ci.handle.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// GetSha returns the SHA-512 hash of the on-disk contents of the CacheItem.
// It reads the file fresh from disk rather than through ci.handle, since by
// the time a caller wants the digest the write handle has typically already
// been closed and flushed.
func (ci *CacheItem) GetSha() ([]byte, error) {
	handle, err := ci.Path.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = handle.Close() }()

	sha := sha512.New()
	if _, err := io.Copy(sha, handle); err != nil {
		return nil, err
	}

	return sha.Sum(nil), nil
}
