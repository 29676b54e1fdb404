package middleware

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// OriginPolicy is a parsed CORS allow-list. Entries wrapped in slashes,
// like /^https:\/\/.*\.vercel\.app$/, are regular expressions; everything
// else must match the Origin header exactly.
type OriginPolicy struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

func NewOriginPolicy(entries []string) (*OriginPolicy, error) {
	p := &OriginPolicy{exact: make(map[string]struct{})}
	for _, entry := range entries {
		if len(entry) > 2 && strings.HasPrefix(entry, "/") && strings.HasSuffix(entry, "/") {
			re, err := regexp.Compile(entry[1 : len(entry)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid origin pattern %q: %w", entry, err)
			}
			p.patterns = append(p.patterns, re)
			continue
		}
		p.exact[entry] = struct{}{}
	}
	return p, nil
}

// Allowed reports whether origin may call the API. Requests without an
// Origin header (curl, server-to-server) are always allowed.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, re := range p.patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "Authorization", RequestIDHeader}, ", ")
)

const corsMaxAge = 3600

// CORS rejects disallowed origins with 403 and answers preflight requests.
func CORS(policy *OriginPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if !policy.Allowed(origin) {
				log.Printf("CORS rejected origin %q (request %s)", origin, GetRequestID(r.Context()))
				writeError(w, http.StatusForbidden, "CORS policy violation", "")
				return
			}

			if origin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
