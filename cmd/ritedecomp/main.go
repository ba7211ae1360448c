// cmd/ritedecomp/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"ritedecomp/internal/cache"
	"ritedecomp/internal/decomperr"
	"ritedecomp/internal/lifter"
	"ritedecomp/internal/riteio"
	"ritedecomp/internal/server"
)

const version = "0.1.0"

// commandAliases mirrors the short-flag-as-alias convenience the teacher's
// CLI offers, scoped down to this tool's one real subcommand surface.
var commandAliases = map[string]string{
	"c": "check",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	if args[0] == "--help" || args[0] == "-h" || args[0] == "help" {
		showUsage()
		return
	}
	if args[0] == "--version" || args[0] == "-v" || args[0] == "version" {
		fmt.Printf("ritedecomp v%s\n", version)
		return
	}
	if args[0] == "-server" || args[0] == "server" {
		runServer(args[1:])
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
		args[0] = alias
	}
	if cmd == "check" {
		runCheck(args[1:])
		return
	}

	runDecompile(args)
}

type flags struct {
	output      string
	noComments  bool
	cacheDSN    string
	cacheDriver cache.Driver
	paths       []string
}

func parseFlags(args []string) flags {
	f := flags{cacheDriver: cache.SQLite}
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-o" && i+1 < len(args):
			f.output = args[i+1]
			i++
		case args[i] == "-no-comments":
			f.noComments = true
		case args[i] == "-cache" && i+1 < len(args):
			f.cacheDSN = args[i+1]
			i++
		case args[i] == "-cache-driver" && i+1 < len(args):
			f.cacheDriver = cache.Driver(args[i+1])
			i++
		default:
			f.paths = append(f.paths, args[i])
		}
	}
	return f
}

// runDecompile handles both `ritedecomp file.mrb` (single file) and
// `ritedecomp dir/` (batch mode, fanned out via errgroup — supplemented
// from decompileAll.py's directory walk).
func runDecompile(args []string) {
	f := parseFlags(args)
	if len(f.paths) == 0 {
		log.Fatal("ritedecomp: no input file or directory given")
	}

	var c *cache.Cache
	if f.cacheDSN != "" {
		opened, err := cache.Open(f.cacheDriver, f.cacheDSN)
		if err != nil {
			log.Fatalf("ritedecomp: opening cache: %v", err)
		}
		defer opened.Close()
		c = opened
	}

	var files []string
	for _, p := range f.paths {
		info, err := os.Stat(p)
		if err != nil {
			log.Fatalf("ritedecomp: %v", err)
		}
		if info.IsDir() {
			files = append(files, collectMrbFiles(p)...)
		} else {
			files = append(files, p)
		}
	}

	if len(files) == 0 {
		log.Fatal("ritedecomp: no .mrb files found")
	}

	// Single explicit -o only makes sense for a single input file.
	if f.output != "" && len(files) > 1 {
		log.Fatal("ritedecomp: -o cannot be combined with multiple input files")
	}

	var g errgroup.Group
	for _, file := range files {
		file := file
		g.Go(func() error {
			return decompileOne(file, f, c)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("ritedecomp: %v", err)
	}
}

func collectMrbFiles(dir string) []string {
	var out []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".mrb") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func decompileOne(path string, f flags, c *cache.Cache) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer in.Close()

	root, hdr, err := riteio.Read(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(path, err))
		return err
	}

	if c != nil {
		key := cache.Key{CRC: hdr.CRC, TotalSize: hdr.TotalSize}
		if cached, ok, lookupErr := c.Lookup(key); lookupErr == nil && ok {
			return writeOutput(path, f.output, cached)
		}
	}

	src, err := lifter.Decompile(path, root, f.noComments)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(path, err))
		return err
	}

	if c != nil {
		key := cache.Key{CRC: hdr.CRC, TotalSize: hdr.TotalSize}
		if storeErr := c.Store(key, src); storeErr != nil {
			log.Printf("ritedecomp: caching %s: %v", path, storeErr)
		}
	}

	if err := writeOutput(path, f.output, src); err != nil {
		return err
	}
	fmt.Printf("%s: decompiled (%s)\n", path, humanize.Bytes(uint64(len(src))))
	return nil
}

// writeOutput defaults to writing a sibling .rb file alongside the input
// when no -o is given, mirroring build_release.py's batch output layout.
func writeOutput(input, output, source string) error {
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".rb"
	}
	if err := os.WriteFile(output, []byte(source), 0644); err != nil {
		return fmt.Errorf("%s: writing output: %w", input, err)
	}
	return nil
}

// runCheck implements `check <dir>`: scan every .mrb file for decode/lift
// failures without writing anything (the rendered source is discarded), the
// existingMrbFilesAnalyzer.py behavior.
func runCheck(args []string) {
	if len(args) == 0 {
		log.Fatal("ritedecomp check: directory argument required")
	}
	dir := args[0]
	files := collectMrbFiles(dir)
	if len(files) == 0 {
		fmt.Printf("no .mrb files found under %s\n", dir)
		return
	}

	var g errgroup.Group
	results := make([]string, len(files))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			in, err := os.Open(file)
			if err != nil {
				results[i] = fmt.Sprintf("%s: %v", file, err)
				return nil
			}
			defer in.Close()
			root, _, err := riteio.Read(in)
			if err != nil {
				results[i] = fmt.Sprintf("%s: FAIL (%v)", file, err)
				return nil
			}
			if _, err := lifter.Decompile(file, root, true); err != nil {
				results[i] = fmt.Sprintf("%s: FAIL (%v)", file, err)
				return nil
			}
			results[i] = fmt.Sprintf("%s: ok", file)
			return nil
		})
	}
	g.Wait()

	failures := 0
	for _, r := range results {
		fmt.Println(r)
		if strings.Contains(r, "FAIL") {
			failures++
		}
	}
	fmt.Printf("\n%d file(s) checked, %d failed\n", len(files), failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func runServer(args []string) {
	addr := ":8765"
	for i := 0; i < len(args); i++ {
		if args[i] == "-addr" && i+1 < len(args) {
			addr = args[i+1]
		}
	}
	s := server.New(addr)
	if err := s.ListenAndServe(); err != nil {
		log.Fatalf("ritedecomp server: %v", err)
	}
}

// diagnostic renders a failed file's error, dimming the raise-stub text
// with ANSI codes only when stdout is a real terminal.
func diagnostic(path string, err error) string {
	msg := fmt.Sprintf("%s: %v", path, err)
	if de, ok := err.(*decomperr.DecompileError); ok && isatty.IsTerminal(os.Stdout.Fd()) {
		return fmt.Sprintf("%s\n\033[2m%s\033[0m", msg, decomperr.RaiseStub(de.Message))
	}
	return msg
}

func showUsage() {
	fmt.Println("ritedecomp - Rite bytecode decompiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ritedecomp <file.mrb>           Decompile one file, writing <file>.rb")
	fmt.Println("  ritedecomp <dir>                Decompile every .mrb file under dir")
	fmt.Println("  ritedecomp check <dir>          (alias: c) Dry-run: report which files fail to decompile")
	fmt.Println("  ritedecomp -server [-addr :p]   Serve decompile jobs over a websocket")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -o <file>           Output path (single-file mode only)")
	fmt.Println("  -no-comments        Omit pass-through opcode comments from output")
	fmt.Println("  -cache <dsn>        Enable a decompile-result cache (sqlite file path, or a DSN)")
	fmt.Println("  -cache-driver <d>   Cache driver: sqlite (default), postgres, mysql, sqlserver")
	fmt.Println()
	fmt.Println("  ritedecomp --version, ritedecomp --help")
}
