package cache

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache namespaces
const (
	NamespaceBalance  = "balance"
	NamespacePrice    = "price"
	NamespaceMetadata = "metadata"
)

const keyPrefix = "portfolio"

// Key builds the storage key for a subject in a namespace
func Key(namespace string, chain entities.Chain, subject string) string {
	return strings.Join([]string{keyPrefix, namespace, string(chain), chain.NormalizeAddress(subject)}, ":")
}
