package pickserver

import (
	_ "embed"
	"fmt"
	"net/url"

	"github.com/wms-platform/pick-terminal/pkg/contracts/openapi"
)

//go:embed openapi.yaml
var contractDocument []byte

// ContractDocument returns the embedded OpenAPI description of the pick server
func ContractDocument() []byte {
	return contractDocument
}

// NewContractValidator builds a validator for calls made against baseURL
func NewContractValidator(baseURL string) (*openapi.Validator, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pick server url %q: %w", baseURL, err)
	}
	return openapi.NewValidatorFromBytes(contractDocument, u.Path)
}
