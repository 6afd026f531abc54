package build

import (
	"flag"
	"os"
)

var (
	gitCommitFlag = flag.String("git-commit", "", `overrides git commit hash embedded into executables`)
	gitDateFlag   = flag.String("git-date", "", `overrides git commit date embedded into executables`)
)

// Environment the version metadata linked into the binaries
type Environment struct {
	Commit string
	Date   string
}

// Env reads the flags first, then CALC_GIT_COMMIT and CALC_GIT_DATE,
// then the local git checkout
func Env() *Environment {
	env := &Environment{
		Commit: firstNonEmpty(*gitCommitFlag, os.Getenv("CALC_GIT_COMMIT")),
		Date:   firstNonEmpty(*gitDateFlag, os.Getenv("CALC_GIT_DATE")),
	}
	if env.Commit == "" {
		env.Commit = RunGit("rev-parse", "HEAD")
	}
	if env.Date == "" && env.Commit != "" {
		env.Date = RunGit("show", "-s", "--format=%cd", "--date=format:%Y%m%d", env.Commit)
	}
	return env
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
