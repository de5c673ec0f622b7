package casbin

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/nasermirzaei89/threadline/authorization"
)

// ObjectNone stands for "no particular object" in stored rules.
const ObjectNone = "-"

//go:embed model.conf
var casbinModelContent string

type AuthorizationProvider struct {
	enforcer *casbin.Enforcer
}

var _ authorization.AuthorizationProvider = (*AuthorizationProvider)(nil)

func NewAuthorizationProvider(persistAdapter persist.Adapter) (*AuthorizationProvider, error) {
	if persistAdapter == nil {
		return nil, fmt.Errorf("persist adapter is nil")
	}

	casbinModel, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(casbinModel, persistAdapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)

	err = enforcer.LoadPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	return &AuthorizationProvider{
		enforcer: enforcer,
	}, nil
}

func (ap *AuthorizationProvider) CheckAccess(
	_ context.Context,
	req authorization.CheckAccessRequest,
) (*authorization.CheckAccessResponse, error) {
	allowed, err := ap.enforcer.Enforce(req.Subject, req.Domain, objectOrNone(req.Object), req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to enforce policy: %w", err)
	}

	return &authorization.CheckAccessResponse{Allowed: allowed}, nil
}

func (ap *AuthorizationProvider) AddToGroup(_ context.Context, sub string, groups ...string) error {
	_, err := ap.enforcer.AddGroupingPolicies(groupRules(sub, groups))
	if err != nil {
		return fmt.Errorf("failed to add grouping policies: %w", err)
	}

	return nil
}

// AddPolicyFromCSV seeds rules in casbin CSV format ("p, sub, dom, obj, act"
// and "g, sub, group"). Rules already present are skipped, so seeding on every
// start is safe.
func (ap *AuthorizationProvider) AddPolicyFromCSV(_ context.Context, content string) error {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read policy content: %w", err)
	}

	for _, record := range records {
		record = normalizePolicyRecord(record)
		if len(record) == 0 || record[0] == "" {
			continue
		}

		err = ap.addPolicyRecord(record)
		if err != nil {
			return fmt.Errorf("failed to add policy record: %w", err)
		}
	}

	return nil
}

func (ap *AuthorizationProvider) addPolicyRecord(record []string) error {
	params := toAny(record[1:])

	switch record[0] {
	case "p":
		if len(record) != 5 {
			return InvalidPolicyRecordError{Record: record}
		}

		exists, err := ap.enforcer.HasPolicy(params...)
		if err != nil {
			return fmt.Errorf("failed to check policy: %w", err)
		}

		if exists {
			return nil
		}

		_, err = ap.enforcer.AddPolicy(params...)
		if err != nil {
			return fmt.Errorf("failed to add policy: %w", err)
		}
	case "g":
		if len(record) != 3 {
			return InvalidPolicyRecordError{Record: record}
		}

		exists, err := ap.enforcer.HasGroupingPolicy(params...)
		if err != nil {
			return fmt.Errorf("failed to check grouping policy: %w", err)
		}

		if exists {
			return nil
		}

		_, err = ap.enforcer.AddGroupingPolicy(params...)
		if err != nil {
			return fmt.Errorf("failed to add grouping policy: %w", err)
		}
	default:
		return UnknownPolicyTypeError{PolicyType: record[0]}
	}

	return nil
}

func objectOrNone(object string) string {
	if object == "" {
		return ObjectNone
	}

	return object
}

func groupRules(sub string, groups []string) [][]string {
	rules := make([][]string, 0, len(groups))

	for _, group := range groups {
		rules = append(rules, []string{sub, group})
	}

	return rules
}

func normalizePolicyRecord(record []string) []string {
	normalized := make([]string, len(record))
	for i := range record {
		normalized[i] = strings.TrimSpace(record[i])
	}

	return normalized
}

func toAny(params []string) []any {
	args := make([]any, len(params))
	for i := range params {
		args[i] = params[i]
	}

	return args
}
