package judge_test

import (
	"reflect"
	"testing"

	"vexoj/internal/judge"
	appErr "vexoj/pkg/errors"
)

func TestLanguageArgv(t *testing.T) {
	lang := judge.Language{
		ID:         "cpp",
		SourceFile: "main.cpp",
		BinaryFile: "main",
		CompileCmd: "/usr/bin/g++ -O2 -std=c++17 -o {bin} {src}",
		RunCmd:     "./{bin}",
	}

	compileArgv, err := lang.CompileArgv()
	if err != nil {
		t.Fatalf("CompileArgv: %v", err)
	}
	want := []string{"/usr/bin/g++", "-O2", "-std=c++17", "-o", "main", "main.cpp"}
	if !reflect.DeepEqual(compileArgv, want) {
		t.Fatalf("compile argv = %v, want %v", compileArgv, want)
	}

	runArgv, err := lang.RunArgv()
	if err != nil {
		t.Fatalf("RunArgv: %v", err)
	}
	if !reflect.DeepEqual(runArgv, []string{"./main"}) {
		t.Fatalf("run argv = %v", runArgv)
	}
}

func TestLanguageArgvQuoting(t *testing.T) {
	lang := judge.Language{
		ID:         "java",
		SourceFile: "Main.java",
		RunCmd:     `java -XX:MaxRAMPercentage=80 -cp "." Main`,
	}
	argv, err := lang.RunArgv()
	if err != nil {
		t.Fatalf("RunArgv: %v", err)
	}
	want := []string{"java", "-XX:MaxRAMPercentage=80", "-cp", ".", "Main"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
}

func TestLanguageEmptyCommand(t *testing.T) {
	lang := judge.Language{ID: "broken", RunCmd: "   "}
	if _, err := lang.RunArgv(); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestNeedsCompile(t *testing.T) {
	if (judge.Language{CompileCmd: "cc {src}"}).NeedsCompile() != true {
		t.Fatal("expected compiled language to need compile")
	}
	if (judge.Language{RunCmd: "python3 {src}"}).NeedsCompile() {
		t.Fatal("expected interpreted language to skip compile")
	}
}

func TestMaxProcessesDefault(t *testing.T) {
	if got := (judge.Language{}).MaxProcesses(); got != 1 {
		t.Fatalf("default max processes = %d, want 1", got)
	}
	if got := (judge.Language{Processes: 64}).MaxProcesses(); got != 64 {
		t.Fatalf("max processes = %d, want 64", got)
	}
}

func TestRegistryGet(t *testing.T) {
	reg := judge.NewRegistry(judge.DefaultLanguages())

	lang, err := reg.Get("cpp")
	if err != nil {
		t.Fatalf("Get(cpp): %v", err)
	}
	if lang.ID != "cpp" {
		t.Fatalf("lang id = %s", lang.ID)
	}

	_, err = reg.Get("cobol")
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("error code = %d, want %d", appErr.GetCode(err), appErr.LanguageNotSupported)
	}
}
