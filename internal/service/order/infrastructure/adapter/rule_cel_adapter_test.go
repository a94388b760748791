// internal/service/order/infrastructure/adapter/rule_cel_adapter_test.go
package adapter

import (
	"testing"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
)

func TestCELRuleMutesMatchingStatus(t *testing.T) {
	rule, err := NewCELRuleAdapter([]string{`status == "MENCARI_DRIVER"`})
	if err != nil {
		t.Fatal(err)
	}

	muted, err := rule.Muted(domain.NotificationEvent{Status: domain.DeliverySearchingDriver})
	if err != nil {
		t.Fatal(err)
	}
	if !muted {
		t.Error("matching rule should mute the notification")
	}

	muted, err = rule.Muted(domain.NotificationEvent{Status: domain.DeliveryShipping})
	if err != nil {
		t.Fatal(err)
	}
	if muted {
		t.Error("non-matching rule muted the notification")
	}
}

func TestCELRuleAnyMatchMutes(t *testing.T) {
	rule, err := NewCELRuleAdapter([]string{
		`userId == "blocked-user"`,
		`status == "MENCARI_DRIVER"`,
	})
	if err != nil {
		t.Fatal(err)
	}

	muted, err := rule.Muted(domain.NotificationEvent{
		UserID: "blocked-user",
		Status: domain.DeliveryArrived,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !muted {
		t.Error("hit on the first rule should mute")
	}
}

func TestCELRuleRejectsInvalidExpressions(t *testing.T) {
	if _, err := NewCELRuleAdapter([]string{`status ==`}); err == nil {
		t.Error("syntax error must fail construction")
	}
	// 编译通过但结果不是 bool 的表达式同样拒绝
	if _, err := NewCELRuleAdapter([]string{`status + "x"`}); err == nil {
		t.Error("non-bool rule must fail construction")
	}
	if _, err := NewCELRuleAdapter(nil); err != nil {
		t.Errorf("empty rule set should be fine, got %v", err)
	}
}
