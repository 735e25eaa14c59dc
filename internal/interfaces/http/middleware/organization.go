package middleware

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

const (
	DefaultOrgHeader   = "X-Organization-ID"
	DefaultActorHeader = "X-Actor-ID"
)

// OrganizationConfig names the headers that scope a request. Authentication
// happens upstream; the gateway forwards the resolved organization and actor.
type OrganizationConfig struct {
	OrgHeader   string
	ActorHeader string
	// AllowedOrganizations is an optional whitelist.
	AllowedOrganizations []string
}

func DefaultOrganizationConfig() OrganizationConfig {
	return OrganizationConfig{
		OrgHeader:   DefaultOrgHeader,
		ActorHeader: DefaultActorHeader,
	}
}

var orgIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Organization rejects requests without a well-formed organization header and
// stores the organization and actor on the request context.
func Organization(cfg OrganizationConfig, logger logging.Logger) func(http.Handler) http.Handler {
	if cfg.OrgHeader == "" {
		cfg.OrgHeader = DefaultOrgHeader
	}
	if cfg.ActorHeader == "" {
		cfg.ActorHeader = DefaultActorHeader
	}
	var allowed map[string]struct{}
	if len(cfg.AllowedOrganizations) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedOrganizations))
		for _, o := range cfg.AllowedOrganizations {
			allowed[strings.TrimSpace(o)] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := strings.TrimSpace(r.Header.Get(cfg.OrgHeader))
			if orgID == "" {
				writeMiddlewareError(w, http.StatusBadRequest, errors.ErrCodeValidation,
					cfg.OrgHeader+" header is required")
				return
			}
			if !orgIDPattern.MatchString(orgID) {
				logger.Warn("Invalid organization id",
					logging.String("organization_id", orgID),
					logging.String("path", r.URL.Path))
				writeMiddlewareError(w, http.StatusBadRequest, errors.ErrCodeValidation,
					"organization id must match [a-zA-Z0-9_-]{1,64}")
				return
			}
			if allowed != nil {
				if _, ok := allowed[orgID]; !ok {
					writeMiddlewareError(w, http.StatusForbidden, errors.ErrCodeForbidden,
						"organization is not served by this instance")
					return
				}
			}

			ctx := common.WithOrganization(r.Context(), orgID)
			if actor := strings.TrimSpace(r.Header.Get(cfg.ActorHeader)); actor != "" {
				ctx = common.WithActor(ctx, actor)
			}
			w.Header().Set(cfg.OrgHeader, orgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type middlewareError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeMiddlewareError(w http.ResponseWriter, status int, code errors.ErrorCode, message string) {
	var body middlewareError
	body.Error.Code = string(code)
	body.Error.Message = message
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

//Personal.AI order the ending
