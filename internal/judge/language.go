package judge

import (
	"strings"

	"github.com/google/shlex"

	appErr "vexoj/pkg/errors"
)

// Command placeholders substituted before execution.
const (
	placeholderSource = "{src}"
	placeholderBinary = "{bin}"
)

// Language describes how to compile and run one supported language
// inside the sandbox.
type Language struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	SourceFile string `yaml:"sourceFile"`
	BinaryFile string `yaml:"binaryFile"`

	// CompileCmd is a shell-style command line with {src} and {bin}
	// placeholders. Empty for interpreted languages.
	CompileCmd string `yaml:"compileCmd"`
	// RunCmd is the command line launching the program.
	RunCmd string `yaml:"runCmd"`

	// Processes caps in-sandbox processes and threads for runs.
	// Zero means single process; runtimes with service threads need more.
	Processes int `yaml:"processes,omitempty"`
}

// NeedsCompile reports whether the language has a compile step.
func (l Language) NeedsCompile() bool {
	return l.CompileCmd != ""
}

// MaxProcesses is the effective process cap for runs.
func (l Language) MaxProcesses() int {
	if l.Processes > 0 {
		return l.Processes
	}
	return 1
}

// CompileArgv resolves the compile command into an argv.
func (l Language) CompileArgv() ([]string, error) {
	return l.argv(l.CompileCmd)
}

// RunArgv resolves the run command into an argv.
func (l Language) RunArgv() ([]string, error) {
	return l.argv(l.RunCmd)
}

func (l Language) argv(command string) ([]string, error) {
	resolved := strings.ReplaceAll(command, placeholderSource, l.SourceFile)
	resolved = strings.ReplaceAll(resolved, placeholderBinary, l.BinaryFile)
	argv, err := shlex.Split(resolved)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command for language %s", l.ID)
	}
	if len(argv) == 0 {
		return nil, appErr.Newf(appErr.InvalidParams, "empty command for language %s", l.ID)
	}
	return argv, nil
}

// Registry resolves language ids to their definitions.
type Registry struct {
	langs map[string]Language
}

// NewRegistry builds a registry from language definitions.
// Later entries with duplicate ids override earlier ones.
func NewRegistry(langs []Language) *Registry {
	m := make(map[string]Language, len(langs))
	for _, l := range langs {
		m[l.ID] = l
	}
	return &Registry{langs: m}
}

// Get looks a language up by id.
func (r *Registry) Get(id string) (Language, error) {
	lang, ok := r.langs[id]
	if !ok {
		return Language{}, appErr.Newf(appErr.LanguageNotSupported, "language %q is not supported", id)
	}
	return lang, nil
}

// DefaultLanguages returns the built-in language table. Deployments
// override it through the worker config file.
func DefaultLanguages() []Language {
	return []Language{
		{
			ID:         "c",
			Name:       "C (GCC)",
			SourceFile: "main.c",
			BinaryFile: "main",
			CompileCmd: "/usr/bin/gcc -O2 -std=c11 -o {bin} {src} -lm",
			RunCmd:     "./{bin}",
		},
		{
			ID:         "cpp",
			Name:       "C++ (G++)",
			SourceFile: "main.cpp",
			BinaryFile: "main",
			CompileCmd: "/usr/bin/g++ -O2 -std=c++17 -o {bin} {src}",
			RunCmd:     "./{bin}",
		},
		{
			ID:         "python",
			Name:       "Python 3",
			SourceFile: "main.py",
			RunCmd:     "/usr/bin/python3 {src}",
		},
		{
			ID:         "go",
			Name:       "Go",
			SourceFile: "main.go",
			BinaryFile: "main",
			CompileCmd: "/usr/local/go/bin/go build -o {bin} {src}",
			RunCmd:     "./{bin}",
			Processes:  32,
		},
		{
			ID:         "java",
			Name:       "Java",
			SourceFile: "Main.java",
			BinaryFile: "Main",
			CompileCmd: "/usr/bin/javac {src}",
			RunCmd:     "/usr/bin/java -Xss64m {bin}",
			Processes:  64,
		},
	}
}
