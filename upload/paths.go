package upload

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bmatcuk/doublestar/v4"
)

// ExpandPaths resolves the file arguments of an upload into the absolute paths of the
// files to send, in argument order. `~` and environment variables are resolved; patterns
// may use `**`. Arguments that name no uploadable file are logged and skipped, and a file
// named more than once is uploaded once.
func ExpandPaths(args []string, pathModifier pathutil.PathModifier, pathChecker pathutil.PathChecker, logger log.Logger) ([]string, error) {
	var candidates []string
	for _, arg := range args {
		if !strings.Contains(arg, "*") {
			candidates = append(candidates, arg)
			continue
		}

		root, pattern := doublestar.SplitPattern(arg)
		absRoot, err := pathModifier.AbsPath(root)
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(os.DirFS(absRoot), pattern, doublestar.WithNoFollow())
		if err != nil {
			logger.Warnf("Invalid upload pattern %s: %s", arg, err)
			continue
		}
		if len(matches) == 0 {
			logger.Warnf("No files to upload match %s", arg)
			continue
		}
		for _, match := range matches {
			candidates = append(candidates, filepath.Join(root, match))
		}
	}

	seen := map[string]bool{}
	var uploads []string
	for _, candidate := range candidates {
		absPath, err := pathModifier.AbsPath(candidate)
		if err != nil {
			logger.Warnf("Not uploading %s: %s", candidate, err)
			continue
		}
		if seen[absPath] {
			logger.Debugf("%s is already queued for upload", candidate)
			continue
		}

		exists, err := pathChecker.IsPathExists(absPath)
		if err != nil {
			logger.Warnf("Not uploading %s: %s", candidate, err)
			continue
		}
		if !exists {
			logger.Warnf("Not uploading %s: no such file", candidate)
			continue
		}
		isDir, err := pathChecker.IsDirExists(absPath)
		if err != nil {
			logger.Warnf("Not uploading %s: %s", candidate, err)
			continue
		}
		if isDir {
			logger.Warnf("Not uploading %s: it is a directory", candidate)
			continue
		}

		seen[absPath] = true
		uploads = append(uploads, absPath)
	}

	return uploads, nil
}
