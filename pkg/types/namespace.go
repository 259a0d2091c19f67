package types

import (
	"fmt"
	"strings"
)

// Namespace selects the knowledge collection and vocabulary an agent queries.
type Namespace string

const (
	// NamespaceOnboarding holds population and reentry guidance.
	NamespaceOnboarding Namespace = "onboarding"
	// NamespaceMindset holds behavioral and identity protocols.
	NamespaceMindset Namespace = "mindset"
	// NamespaceBusiness holds business and operational guidance.
	NamespaceBusiness Namespace = "business"
)

// AllNamespaces lists every known namespace in a stable order.
var AllNamespaces = []Namespace{
	NamespaceOnboarding,
	NamespaceMindset,
	NamespaceBusiness,
}

// ParseNamespace converts a user-supplied string into a Namespace.
func ParseNamespace(s string) (Namespace, error) {
	ns := Namespace(strings.ToLower(strings.TrimSpace(s)))
	if !ns.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidNamespace, s)
	}
	return ns, nil
}

// Valid reports whether n is one of the known namespaces.
func (n Namespace) Valid() bool {
	for _, known := range AllNamespaces {
		if n == known {
			return true
		}
	}
	return false
}

func (n Namespace) String() string {
	return string(n)
}
