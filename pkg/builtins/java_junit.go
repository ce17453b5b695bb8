package builtins

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ngld/match/pkg/expression"
	"github.com/ngld/match/pkg/shell"
)

const junitRunner = "org.junit.runner.JUnitCore"

// java_junit(name="echo_tests", main_class="main.AllTests", library=[...]) runs a JUnit suite and
// tees its report into <results>/<name>. The report path is published as property <name> so
// later targets can depend on it.
type javaJUnit struct {
	env       expression.Env
	name      string
	mainClass string
	libraries expression.Expression
	output    string
}

func newJavaJUnit(env expression.Env, params expression.Params) (expression.Function, error) {
	name, err := params.Literal("java_junit", "name")
	if err != nil {
		return nil, err
	}

	mainClass, err := params.Literal("java_junit", "main_class")
	if err != nil {
		return nil, err
	}

	return &javaJUnit{
		env:       env,
		name:      name,
		mainClass: mainClass,
		libraries: params.Optional("library"),
		output:    strings.TrimSuffix(env.Match.Settings().ResultsDir, "/") + "/" + name,
	}, nil
}

func (j *javaJUnit) resultsDir() string {
	return j.env.Match.Settings().ResultsDir
}

func (j *javaJUnit) Configure(context.Context) error {
	j.env.Match.AddFile(j.output)
	j.env.Match.SetProperty(j.name, j.output)
	return nil
}

func (j *javaJUnit) Resolve(ctx context.Context) (string, error) {
	classpath, err := j.classpath(ctx)
	if err != nil {
		return "", err
	}

	err = j.env.Match.RunCommand(ctx, "mkdir -p "+shell.Quote(j.resultsDir()))
	if err != nil {
		return "", err
	}

	command := fmt.Sprintf("java -cp %s %s %s | tee %s", shell.Quote(strings.Join(classpath, ":")),
		junitRunner, shell.Quote(j.mainClass), shell.Quote(j.output))
	err = j.env.Match.RunCommand(ctx, command)
	if err != nil {
		return "", err
	}

	if err = j.env.Match.ProvideFile(j.output); err != nil {
		return "", err
	}
	return j.output, nil
}

// classpath resolves the base libraries plus the requested ones. Jars produced inside the tree are
// waited for; anything without a gate, like a system wide junit.jar, is used as is.
func (j *javaJUnit) classpath(ctx context.Context) ([]string, error) {
	names := map[string]bool{}
	for _, lib := range j.env.Match.Settings().Libraries {
		names[lib] = true
	}

	if j.libraries != nil {
		extra, err := j.libraries.ResolveList(ctx)
		if err != nil {
			return nil, err
		}
		for _, lib := range extra {
			names[lib] = true
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	classpath := make([]string, 0, len(sorted))
	for _, name := range sorted {
		jar, err := j.env.Match.Property(name)
		if err != nil {
			return nil, err
		}

		if j.env.Match.HasFile(jar) {
			if err = j.env.Match.AwaitFile(ctx, jar); err != nil {
				return nil, err
			}
		}
		classpath = append(classpath, jar)
	}
	return classpath, nil
}
