package redis

import "strings"

const (
	defaultNamespace  = "ims"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	idempotencyPrefix = "idempotency"
	lockPrefix        = "lock"
)

// Keyspace builds colon-separated keys under one namespace so several
// environments can share a redis instance.
type Keyspace struct {
	namespace string
}

func NewKeyspace(namespace string) Keyspace {
	return Keyspace{namespace: strings.Trim(strings.TrimSpace(namespace), ":")}
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.buildKey(rateLimitPrefix, scope)
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.buildKey(idempotencyPrefix, scope, id)
}

// AccessSessionKey holds the refresh session for one access token jti.
func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.buildKey(sessionPrefix, "access", accessID)
}

// EmployeeSessionsKey is the set of live jtis for one employee.
func (k Keyspace) EmployeeSessionsKey(employeeID string) string {
	return k.buildKey(sessionPrefix, "employee", employeeID)
}

func (k Keyspace) LockKey(name string) string {
	return k.buildKey(lockPrefix, name)
}

func (k Keyspace) buildKey(parts ...string) string {
	ns := k.namespace
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
