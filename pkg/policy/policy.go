package policy

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

// Query is the rule set evaluated for every proposed plan change. Policies
// declare `package plan` and add human readable strings to `deny`.
const Query = "data.plan.deny"

// regoPrintHook forwards Rego print() output to the context logger
type regoPrintHook struct {
	ctx context.Context
}

func (h *regoPrintHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// Guard evaluates Rego policies against proposed plan changes. A nil Guard
// allows everything.
type Guard struct {
	query *rego.PreparedEvalQuery
}

// Load reads every *.rego file in dir. It returns a nil Guard when dir is
// empty or holds no policy files.
func Load(ctx context.Context, dir string) (*Guard, error) {
	if dir == "" {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", dir))
	}
	if len(files) == 0 {
		return nil, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+2)
	options = append(options, rego.Query(Query), rego.EnablePrintStatements(true))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query", goerr.V("dir", dir))
	}

	logging.From(ctx).Debug("plan policies loaded", "dir", dir, "files", len(files))
	return &Guard{query: &prepared}, nil
}

// Check returns the sorted deny messages produced for input. An empty result
// means the change is allowed.
func (g *Guard) Check(ctx context.Context, input any) ([]string, error) {
	if g == nil || g.query == nil {
		return nil, nil
	}

	rs, err := g.query.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&regoPrintHook{ctx: ctx}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate plan policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	values, ok := rs[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, goerr.New("invalid policy result: deny is not a set", goerr.V("value", rs[0].Expressions[0].Value))
	}

	reasons := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, goerr.New("invalid policy result: deny entry is not a string", goerr.V("value", v))
		}
		reasons = append(reasons, s)
	}
	sort.Strings(reasons)
	return reasons, nil
}
