package extension

import "testing"

func TestParseLabelSelector(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		check    func(t *testing.T, cond *Condition)
	}{
		{
			"equals", "env=prod",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeLabelEquals || cond.LabelKey != "env" || cond.LabelValue != "prod" {
					t.Errorf("got %+v, want LabelEquals(env, prod)", cond)
				}
			},
		},
		{
			"double_equals", "env==prod",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeLabelEquals || cond.LabelValue != "prod" {
					t.Errorf("got %+v, want LabelEquals(env, prod)", cond)
				}
			},
		},
		{
			"not_equals", "env!=prod",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeLabelNotEquals || cond.LabelKey != "env" || cond.LabelValue != "prod" {
					t.Errorf("got %+v, want LabelNotEquals(env, prod)", cond)
				}
			},
		},
		{
			"exists", "env",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeLabelExists || cond.LabelKey != "env" {
					t.Errorf("got %+v, want LabelExists(env)", cond)
				}
			},
		},
		{
			"not_exists", "!env",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeLabelNotExists || cond.LabelKey != "env" {
					t.Errorf("got %+v, want LabelNotExists(env)", cond)
				}
			},
		},
		{
			"conjunction", "env=prod,tier!=frontend,!legacy",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeAnd {
					t.Fatalf("root: got %s, want And", cond.Type)
				}
				if cond.Right.Type != TypeLabelNotExists || cond.Right.LabelKey != "legacy" {
					t.Errorf("right: got %+v, want LabelNotExists(legacy)", cond.Right)
				}
				if cond.Left.Type != TypeAnd {
					t.Fatalf("left: got %s, want And", cond.Left.Type)
				}
			},
		},
		{
			"empty_selector", "",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeEmpty {
					t.Errorf("got %s, want Empty", cond.Type)
				}
			},
		},
		{
			"spaces", " env = prod , tier ",
			func(t *testing.T, cond *Condition) {
				if cond.Type != TypeAnd {
					t.Fatalf("root: got %s, want And", cond.Type)
				}
				if cond.Left.LabelKey != "env" || cond.Left.LabelValue != "prod" {
					t.Errorf("left: got %+v", cond.Left)
				}
				if cond.Right.Type != TypeLabelExists || cond.Right.LabelKey != "tier" {
					t.Errorf("right: got %+v", cond.Right)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := ParseLabelSelector(tt.selector)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.selector, err)
			}
			tt.check(t, cond)
		})
	}
}

func TestParseLabelSelector_EmptyKey(t *testing.T) {
	for _, selector := range []string{"=value", "!=value", "!"} {
		if _, err := ParseLabelSelector(selector); err == nil {
			t.Errorf("selector %q: expected error", selector)
		}
	}
}

func TestListOptions_ToCondition(t *testing.T) {
	t.Run("explicit condition wins", func(t *testing.T) {
		explicit := Equal("spec.slug", "x")
		opts := ListOptions{LabelSelector: "env=prod", Condition: explicit}
		cond, err := opts.ToCondition()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cond != explicit {
			t.Error("explicit condition must take precedence over the selector")
		}
	})

	t.Run("selector parsed", func(t *testing.T) {
		cond, err := ListOptions{LabelSelector: "env=prod"}.ToCondition()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cond.Type != TypeLabelEquals {
			t.Errorf("got %s, want LabelEquals", cond.Type)
		}
	})

	t.Run("defaults to empty", func(t *testing.T) {
		cond, err := ListOptions{}.ToCondition()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cond.Type != TypeEmpty {
			t.Errorf("got %s, want Empty", cond.Type)
		}
	})

	t.Run("invalid selector fails", func(t *testing.T) {
		if _, err := (ListOptions{LabelSelector: "=broken"}).ToCondition(); err == nil {
			t.Error("expected parse error")
		}
	})
}
