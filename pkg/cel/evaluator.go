package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"contactguard/pkg/models"
)

// Evaluator compiles and runs boolean rules over a contact message. Rules see
// the variables name, email, subject, message and email_domain, all strings.
type Evaluator struct {
	env *cel.Env
}

// Rule is a compiled expression, safe for concurrent evaluation.
type Rule struct {
	Name       string
	Expression string
	program    cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("email", cel.StringType),
		cel.Variable("subject", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("email_domain", cel.StringType),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, err := e.compile(expression)
	return err
}

func (e *Evaluator) compile(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule expression must return bool, got %v", ast.OutputType())
	}

	return ast, nil
}

func (e *Evaluator) CompileRule(name, expression string) (*Rule, error) {
	ast, err := e.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule %q: failed to create CEL program: %w", name, err)
	}

	return &Rule{Name: name, Expression: expression, program: program}, nil
}

func (r *Rule) Matches(ctx context.Context, msg models.ContactMessage) (bool, error) {
	vars := map[string]interface{}{
		"name":         msg.Name,
		"email":        msg.Email,
		"subject":      msg.Subject,
		"message":      msg.Message,
		"email_domain": msg.EmailDomain(),
	}

	result, _, err := r.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rule %q: %w", r.Name, err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q did not return bool, got %T", r.Name, result.Value())
	}

	return boolVal, nil
}
