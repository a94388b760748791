// internal/service/order/infrastructure/adapter/rule_cel_adapter.go
package adapter

import (
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

// CELRuleAdapter 实现了 port.NotificationRule 接口。
// 运营通过配置下发 CEL 表达式来静音部分通知，
// 例如 `status == "MENCARI_DRIVER"`（派单阶段抖动大，不值得每次都提醒）。
type CELRuleAdapter struct {
	programs []cel.Program
}

// NewCELRuleAdapter 编译规则表达式。任何一条编译失败都直接报错，
// 宁可启动失败也不要带着坏规则上线。
func NewCELRuleAdapter(rules []string) (*CELRuleAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("orderId", cel.StringType),
		cel.Variable("userId", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("body", cel.StringType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	programs := make([]cel.Program, 0, len(rules))
	for _, rule := range rules {
		ast, iss := env.Compile(rule)
		if iss.Err() != nil {
			return nil, errors.Wrapf(iss.Err(), "invalid notification rule %q", rule)
		}
		if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
			return nil, errors.Errorf("notification rule %q must evaluate to bool", rule)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build program for rule %q", rule)
		}
		programs = append(programs, prg)
	}
	return &CELRuleAdapter{programs: programs}, nil
}

// Muted 返回通知是否命中任意一条静音规则。
func (a *CELRuleAdapter) Muted(ev domain.NotificationEvent) (bool, error) {
	fact := map[string]interface{}{
		"orderId": ev.OrderID,
		"userId":  ev.UserID,
		"status":  string(ev.Status),
		"title":   ev.Title,
		"body":    ev.Body,
	}
	for _, prg := range a.programs {
		out, _, err := prg.Eval(fact)
		if err != nil {
			return false, errors.Wrap(err, "notification rule evaluation failed")
		}
		if muted, ok := out.Value().(bool); ok && muted {
			return true, nil
		}
	}
	return false, nil
}
