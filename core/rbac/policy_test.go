package rbac

import "testing"

func TestRolePermissions(t *testing.T) {
	policy, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	cases := []struct {
		role string
		perm string
		want bool
	}{
		{"viewer", PermReportsView, true},
		{"viewer", PermImportsAnalyze, false},
		{"viewer", PermImportsConfirm, false},
		{"analyst", PermReportsView, true},
		{"analyst", PermImportsAnalyze, true},
		{"analyst", PermImportsConfirm, false},
		{"admin", PermReportsView, true},
		{"admin", PermImportsAnalyze, true},
		{"admin", PermImportsConfirm, true},
		{"admin", PermLogsView, true},
		{"nobody", PermReportsView, false},
	}
	for _, tc := range cases {
		if got := policy.Allowed(tc.role, tc.perm); got != tc.want {
			t.Fatalf("Allowed(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestNilPolicyDenies(t *testing.T) {
	var policy *Policy
	if policy.Allowed("admin", PermReportsView) {
		t.Fatalf("nil policy must deny")
	}
}
