package blockcypher_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBlockCypherScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "BlockCypher Client Suite")
}
