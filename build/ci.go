// Command ci builds the binaries with the git commit and date linked into
// their version sub command.
//
//	go run build/ci.go install [packages]
//	go run build/ci.go test [packages]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/build"
)

const minGoMinor = 24

var (
	gobin, _ = filepath.Abs(filepath.Join("build", "bin"))

	defaultCommands = []string{
		"./cmd/calcserver",
		"./cmd/calctools",
	}
)

func main() {
	log.SetFlags(log.Lshortfile)

	if _, err := os.Stat(filepath.Join("build", "ci.go")); os.IsNotExist(err) {
		log.Fatal("this script must be run from the root of the repository")
	}
	if len(os.Args) < 2 {
		log.Fatal("need subcommand as first argument")
	}
	switch os.Args[1] {
	case "install":
		doInstall(os.Args[2:])
	case "test":
		doTest(os.Args[2:])
	default:
		log.Fatal("unknown command ", os.Args[1])
	}
}

func checkGoVersion() {
	if strings.Contains(runtime.Version(), "devel") {
		return
	}
	var minor int
	_, _ = fmt.Sscanf(strings.TrimPrefix(runtime.Version(), "go1."), "%d", &minor)
	if minor < minGoMinor {
		log.Printf("You have Go version %v, at least go1.%d is required", runtime.Version(), minGoMinor)
		os.Exit(1)
	}
}

func doInstall(cmdline []string) {
	_ = flag.CommandLine.Parse(cmdline)
	checkGoVersion()
	env := build.Env()

	packages := defaultCommands
	if flag.NArg() > 0 {
		packages = flag.Args()
	}

	goinstall := goTool("install", buildFlags(env)...)
	goinstall.Args = append(goinstall.Args, "-v")
	goinstall.Args = append(goinstall.Args, packages...)
	build.MustRun(goinstall)
}

func doTest(cmdline []string) {
	_ = flag.CommandLine.Parse(cmdline)
	checkGoVersion()

	packages := []string{"./..."}
	if flag.NArg() > 0 {
		packages = flag.Args()
	}
	gotest := goTool("test", "-race", "-count=1")
	gotest.Args = append(gotest.Args, packages...)
	build.MustRun(gotest)
}

func buildFlags(env *build.Environment) (flags []string) {
	var ld []string
	if env.Commit != "" {
		ld = append(ld,
			"-X", "main.gitCommit="+env.Commit,
			"-X", "main.gitDate="+env.Date,
		)
	}
	if runtime.GOOS == "darwin" {
		ld = append(ld, "-s")
	}
	if len(ld) > 0 {
		flags = append(flags, "-ldflags", strings.Join(ld, " "))
	}
	return flags
}

func goTool(subcmd string, args ...string) *exec.Cmd {
	cmd := build.GoTool(subcmd, args...)
	cmd.Env = append(cmd.Env, "GOBIN="+gobin)
	if cc := os.Getenv("CC"); cc != "" {
		cmd.Env = append(cmd.Env, "CC="+cc)
	}
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "GOBIN=") {
			continue
		}
		cmd.Env = append(cmd.Env, e)
	}
	return cmd
}
