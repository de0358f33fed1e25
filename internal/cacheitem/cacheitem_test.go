package cacheitem

import (
	"testing"

	"github.com/vercel/turborepo-cache/internal/turbopath"
	"gotest.tools/v3/assert"
)

func TestCreateAndGetSha(t *testing.T) {
	inputDir := turbopath.AbsoluteSystemPath(t.TempDir())
	archiveDir := turbopath.AbsoluteSystemPath(t.TempDir())
	archivePath := turbopath.AnchoredSystemPath("out.tar.zst").RestoreAnchor(archiveDir)

	sourceFile := turbopath.AnchoredSystemPath("file.txt").RestoreAnchor(inputDir)
	assert.NilError(t, sourceFile.WriteFile([]byte("hello"), 0644), "WriteFile")

	archive, createErr := Create(archivePath)
	assert.NilError(t, createErr, "Create")

	addErr := archive.AddFile(inputDir, turbopath.AnchoredSystemPath("file.txt"))
	assert.NilError(t, addErr, "AddFile")

	assert.NilError(t, archive.Close(), "Close")

	sha, shaErr := archive.GetSha()
	assert.NilError(t, shaErr, "GetSha")
	assert.Assert(t, len(sha) == 64, "SHA-512 digest is 64 bytes.")

	reopened, openErr := Open(archivePath)
	assert.NilError(t, openErr, "Open")
	defer func() { _ = reopened.Close() }()

	shaTwo, shaTwoErr := reopened.GetSha()
	assert.NilError(t, shaTwoErr, "GetSha")
	assert.DeepEqual(t, sha, shaTwo)
}
