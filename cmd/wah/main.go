// Command wah packs a WebAssembly module and a directory tree into a
// single polyglot artifact, and recovers an artifact's file tree back to
// disk.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wahpkg/wah"
	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/htmlpoly"
	"github.com/wahpkg/wah/wasmsection"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr io.Writer) int {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "Prints usage.")
	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		return 0
	}

	switch subCmd := flag.Arg(0); subCmd {
	case "pack":
		return doPack(flag.Args()[1:], stdErr)
	case "recover":
		return doRecover(flag.Args()[1:], stdErr)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		return 1
	}
}

func doPack(args []string, stdErr io.Writer) int {
	flags := flag.NewFlagSet("pack", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var moduleFile, srcDir, outFile string
	flags.StringVar(&moduleFile, "module", "", "path to the WebAssembly module to pack")
	flags.StringVar(&srcDir, "src", "", "directory whose contents become the packed file tree")
	flags.StringVar(&outFile, "o", "out.wasm.html", "output artifact path")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if moduleFile == "" || srcDir == "" {
		fmt.Fprintln(stdErr, "pack requires -module and -src")
		return 1
	}

	moduleBytes, err := os.ReadFile(moduleFile)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	module, err := wasmsection.Parse(moduleBytes)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	files, err := readTree(srcDir)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	artifact, err := wah.Pack(wah.NewPackConfig(), module, files)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	if err := os.WriteFile(outFile, artifact, 0o644); err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	return 0
}

func doRecover(args []string, stdErr io.Writer) int {
	flags := flag.NewFlagSet("recover", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var artifactFile, destDir string
	flags.StringVar(&artifactFile, "artifact", "", "path to a packed polyglot artifact")
	flags.StringVar(&destDir, "dest", ".", "directory to extract the recovered file tree into")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if artifactFile == "" {
		fmt.Fprintln(stdErr, "recover requires -artifact")
		return 1
	}

	artifact, err := os.ReadFile(artifactFile)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	entries, err := htmlpoly.Recover(artifact)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	for _, e := range entries {
		if e.Header.Typeflag == api.TypeDirectory {
			continue
		}
		dest := filepath.Join(destDir, filepath.FromSlash(e.Header.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			fmt.Fprintln(stdErr, err)
			return 1
		}
		if err := os.WriteFile(dest, e.Data, 0o644); err != nil {
			fmt.Fprintln(stdErr, err)
			return 1
		}
	}
	return 0
}

// readTree walks dir and returns every regular file as a FileEntry, named
// by its slash-separated path relative to dir.
func readTree(dir string) ([]api.FileEntry, error) {
	var entries []api.FileEntry
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		entries = append(entries, api.FileEntry{
			Header: api.TarHeader{
				Name:     filepath.ToSlash(rel),
				Size:     int64(len(data)),
				Typeflag: api.TypeRegular,
				ModTime:  info.ModTime().Truncate(time.Second),
			},
			Data: data,
		})
		return nil
	})
	return entries, err
}

func printUsage(stdErr io.Writer) {
	fmt.Fprint(stdErr, `wah CLI

Usage:
	wah <command> [arguments]

Commands:
	pack		Packs a WebAssembly module and a directory into a polyglot artifact.
	recover	Recovers a polyglot artifact's file tree onto disk.
`)
}
