package cacheitem

import (
	"archive/tar"
	"os"
	"path/filepath"
	"strings"

	"github.com/vercel/turborepo-cache/internal/turbopath"
)

// cachedDirTree remembers the deepest directory prefix we've already
// validated and created, so that a well-behaved depth-first tar does not
// pay for an `lstat` per path segment on every single entry.
type cachedDirTree struct {
	anchorAtDepth []turbopath.AbsoluteSystemPath
	prefix        []turbopath.RelativeSystemPath
}

// getStartingPoint compares path against the cached prefix, discards
// whatever portion of the cache no longer applies, and returns the deepest
// anchor we can safely resume from along with the segments still to walk.
func (cr *cachedDirTree) getStartingPoint(path turbopath.AnchoredSystemPath) (turbopath.AbsoluteSystemPath, []turbopath.RelativeSystemPath) {
	segments := splitPathSegments(path)

	matched := 0
	for matched < len(cr.prefix) && matched < len(segments) && cr.prefix[matched] == segments[matched] {
		matched++
	}

	cr.anchorAtDepth = cr.anchorAtDepth[:matched+1]
	cr.prefix = cr.prefix[:matched]

	return cr.anchorAtDepth[matched], segments[matched:]
}

// push records that segment has been validated and created below anchor.
func (cr *cachedDirTree) push(anchor turbopath.AbsoluteSystemPath, segment turbopath.RelativeSystemPath) {
	cr.anchorAtDepth = append(cr.anchorAtDepth, anchor)
	cr.prefix = append(cr.prefix, segment)
}

func splitPathSegments(path turbopath.AnchoredSystemPath) []turbopath.RelativeSystemPath {
	raw := strings.Split(path.ToString(), string(os.PathSeparator))
	segments := make([]turbopath.RelativeSystemPath, len(raw))
	for i, segment := range raw {
		segments[i] = turbopath.RelativeSystemPath(segment)
	}
	return segments
}

// restoreDirectory restores a directory.
func restoreDirectory(dirCache *cachedDirTree, anchor turbopath.AbsoluteSystemPath, header *tar.Header) (turbopath.AnchoredSystemPath, error) {
	processedName, err := canonicalizeName(header.Name)
	if err != nil {
		return "", err
	}

	if err := safeMkdirAll(dirCache, anchor, processedName, header.Mode); err != nil {
		return "", err
	}

	return processedName, nil
}

// safeMkdirAll creates all directories, assuming that the leaf node is a directory.
// It walks path segments one at a time, checking each one for a symlink that would
// escape the anchor, resuming from wherever dirCache last left off.
func safeMkdirAll(dirCache *cachedDirTree, anchor turbopath.AbsoluteSystemPath, processedName turbopath.AnchoredSystemPath, mode int64) error {
	calculatedAnchor, pathSegments := dirCache.getStartingPoint(processedName)

	var checkPathErr error
	for _, segment := range pathSegments {
		calculatedAnchor, checkPathErr = checkPath(anchor, calculatedAnchor, segment)
		if checkPathErr != nil {
			return checkPathErr
		}
		dirCache.push(calculatedAnchor, segment)
	}

	// If we have made it here we know that it is safe to call MkdirAll
	// on the Join of anchor and processedName.
	return processedName.RestoreAnchor(anchor).MkdirAllMode(os.FileMode(mode))
}

// checkPath ensures that the resolved path (if restoring symlinks)
// never traverses outside of the anchor.
func checkPath(originalAnchor turbopath.AbsoluteSystemPath, accumulatedAnchor turbopath.AbsoluteSystemPath, segment turbopath.RelativeSystemPath) (turbopath.AbsoluteSystemPath, error) {
	// Check if the segment itself is sneakily an absolute path...
	// (looking at you, Windows. CON, AUX...)
	if filepath.IsAbs(segment.ToString()) {
		return "", errTraversal
	}

	// Find out if this portion of the path is a symlink.
	combinedPath := accumulatedAnchor.Join(segment)
	fileInfo, err := combinedPath.Lstat()

	// Getting an error here means we failed to stat the path.
	// Assume that means we're safe and continue.
	if err != nil {
		return combinedPath, nil
	}

	// Find out if we have a symlink.
	isSymlink := fileInfo.Mode()&os.ModeSymlink != 0

	// If we don't have a symlink it's safe.
	if !isSymlink {
		return combinedPath, nil
	}

	// Check to see if the symlink targets outside of the originalAnchor.
	// We don't do EvalSymlinks because we could find ourselves in a totally
	// different place.

	linkTarget, readLinkErr := combinedPath.Readlink()
	if readLinkErr != nil {
		return "", readLinkErr
	}

	if filepath.IsAbs(linkTarget) {
		if strings.HasPrefix(linkTarget, originalAnchor.ToString()) {
			return turbopath.AbsoluteSystemPath(linkTarget), nil
		}
		return "", errTraversal
	}

	// Target is relative (or absolute Windows on a Unix device).
	computedTarget := filepath.Join(accumulatedAnchor.ToString(), linkTarget)
	if strings.HasPrefix(computedTarget, originalAnchor.ToString()) {
		return turbopath.AbsoluteSystemPath(computedTarget), nil
	}

	return "", errTraversal
}
