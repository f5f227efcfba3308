// igtest compiles every test program with ignis, runs the result and compares
// it with the golden JSON recorded next to the source.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded behaviour of one test program.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Compile    Execution `json:"compile"`
	Run        Execution `json:"run"`
}

type FileTestResult struct {
	File    string  `json:"file"`
	Status  string  `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string  `json:"message,omitempty"`
	Diff    string  `json:"diff,omitempty"`
	Golden  *Golden `json:"golden,omitempty"`
	Actual  *Golden `json:"actual,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	compiler       = flag.String("compiler", "./ignis", "Path to the ignis compiler to test.")
	compilerArgs   = flag.String("compiler-args", "", "Extra compiler arguments (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Record golden .json files for the given source files (space-separated).")
	testFiles      = flag.String("test-files", "tests/*.ig", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 10*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "igtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *generateGolden != "" {
		for _, file := range strings.Fields(*generateGolden) {
			if err := writeGolden(ctx, file, tempDir); err != nil {
				log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
			}
		}
		return
	}

	if !runTestSuite(ctx, tempDir) {
		os.Exit(1)
	}
}

func goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func writeGolden(ctx context.Context, sourceFile, tempDir string) error {
	log.Printf("Generating golden file for %s...\n", sourceFile)
	hash, err := hashFile(sourceFile)
	if err != nil {
		return fmt.Errorf("could not hash %s: %w", sourceFile, err)
	}
	result := compileAndRun(ctx, sourceFile, tempDir, hash)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			return err
		}
	}
	path := goldenPath(sourceFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
	return nil
}

func runTestSuite(ctx context.Context, tempDir string) bool {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return true
	}

	skip := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skip[abs] = true
		}
	}

	tasks := make(chan string)
	results := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				results <- testFile(ctx, file, tempDir)
			}
		}()
	}

	for _, file := range files {
		if skip[file] {
			results <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []*FileTestResult
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })

	printSummary(all)
	writeJSONReport(all)
	for _, r := range all {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return false
		}
	}
	return true
}

func testFile(ctx context.Context, file, tempDir string) *FileTestResult {
	data, err := os.ReadFile(goldenPath(file))
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; record one with --generate-golden"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file: %v", err)}
	}

	hash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
	}
	if *verbose && golden.SourceHash != hash {
		log.Printf("%s[WARN]%s %s changed since its golden file was recorded\n", cYellow, cNone, file)
	}

	actual := compileAndRun(ctx, file, tempDir, hash)
	if diff := compareResults(&golden, actual); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Behaviour differs from the golden file", Diff: diff, Golden: &golden, Actual: actual}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Matches golden file", Golden: &golden, Actual: actual}
}

// observed strips what legitimately varies between runs.
type observed struct {
	CompileOK bool
	ExitCode  int
	TimedOut  bool
	Stdout    string
	Stderr    string
}

func summarize(g *Golden) observed {
	ignored := splitNonEmpty(*ignoreLines, ",")
	c := observed{CompileOK: g.Compile.ExitCode == 0 && !g.Compile.TimedOut}
	if c.CompileOK {
		c.ExitCode, c.TimedOut = g.Run.ExitCode, g.Run.TimedOut
		c.Stdout = filterOutput(g.Run.Stdout, ignored)
		c.Stderr = filterOutput(g.Run.Stderr, ignored)
	}
	return c
}

func compareResults(golden, actual *Golden) string {
	return cmp.Diff(summarize(golden), summarize(actual))
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()

	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut, res.ExitCode = true, -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

func compileAndRun(ctx context.Context, sourceFile, tempDir, hash string) *Golden {
	binary := filepath.Join(tempDir, hash)
	args := append(strings.Fields(*compilerArgs), "-o", binary, sourceFile)

	result := &Golden{SourceHash: hash, Compile: executeCommand(ctx, *compiler, args...)}
	if result.Compile.ExitCode != 0 || result.Compile.TimedOut {
		return result
	}
	if _, err := os.Stat(binary); err != nil {
		result.Compile.ExitCode = -3
		result.Compile.Stderr += fmt.Sprintf("\ncompilation succeeded but %s was not created", binary)
		return result
	}
	result.Run = executeCommand(ctx, binary)
	result.Run.Stdout = strings.ReplaceAll(result.Run.Stdout, binary, "__BINARY__")
	result.Run.Stderr = strings.ReplaceAll(result.Run.Stderr, binary, "__BINARY__")
	return result
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// filterOutput removes lines containing any of the given substrings.
func filterOutput(output string, ignored []string) string {
	if len(ignored) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		drop := false
		for _, sub := range ignored {
			if strings.Contains(line, sub) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
			if *verbose && r.Actual != nil {
				fmt.Printf("  [compile: %s | run: %s]\n", formatDuration(r.Actual.Compile.Duration), formatDuration(r.Actual.Run.Duration))
			}
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			fmt.Println(formatDiff(r.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			b.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			b.WriteString(cGreen)
		}
		b.WriteString("    " + line + cNone + "\n")
	}
	return b.String()
}

func writeJSONReport(results []*FileTestResult) {
	report := make(TestSuiteResults, len(results))
	for _, r := range results {
		report[r.File] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return
	}
	outputFile := *outputJSON
	if *jsonDir != "" {
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
		return
	}
	fmt.Printf("Full test report saved to %s\n", outputFile)
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				files = append(files, abs)
				seen[abs] = true
			}
		}
	}
	return files, nil
}
