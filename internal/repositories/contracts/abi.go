package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const templateRegistryABI = `[
	{"type":"function","name":"registerTemplate","stateMutability":"nonpayable",
	 "inputs":[{"name":"terms","type":"bytes"},{"name":"schedule","type":"bytes32[]"}],"outputs":[]},
	{"type":"function","name":"isRegistered","stateMutability":"view",
	 "inputs":[{"name":"templateId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getTemplateTerms","stateMutability":"view",
	 "inputs":[{"name":"templateId","type":"bytes32"}],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"getTemplateSchedule","stateMutability":"view",
	 "inputs":[{"name":"templateId","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32[]"}]}
]`

const assetIssuerABI = `[
	{"type":"function","name":"issueFromOrder","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"termsHash","type":"bytes32"},
		{"name":"templateId","type":"bytes32"},
		{"name":"customTerms","type":"bytes"},
		{"name":"ownership","type":"address[4]"},
		{"name":"expirationDate","type":"uint256"},
		{"name":"engine","type":"address"},
		{"name":"admin","type":"address"},
		{"name":"salt","type":"uint256"},
		{"name":"creatorSignature","type":"bytes"},
		{"name":"counterpartySignature","type":"bytes"}
	 ],"outputs":[]},
	{"type":"event","name":"IssuedAsset","anonymous":false,
	 "inputs":[
		{"name":"assetId","type":"bytes32","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"counterparty","type":"address","indexed":true}
	 ]}
]`

const assetRegistryABI = `[
	{"type":"function","name":"isRegistered","stateMutability":"view",
	 "inputs":[{"name":"assetId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getAssetIds","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"bytes32[]"}]},
	{"type":"function","name":"getActor","stateMutability":"view",
	 "inputs":[{"name":"assetId","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getNextScheduledPayment","stateMutability":"view",
	 "inputs":[{"name":"assetId","type":"bytes32"}],
	 "outputs":[
		{"name":"eventWord","type":"bytes32"},
		{"name":"amount","type":"uint256"},
		{"name":"token","type":"address"},
		{"name":"payer","type":"address"},
		{"name":"payee","type":"address"}
	 ]}
]`

const assetActorABI = `[
	{"type":"function","name":"progress","stateMutability":"nonpayable",
	 "inputs":[{"name":"assetId","type":"bytes32"}],"outputs":[]}
]`

const pamEngineABI = `[
	{"type":"function","name":"computeNonCyclicScheduleSegment","stateMutability":"pure",
	 "inputs":[{"name":"terms","type":"bytes"},{"name":"segmentStart","type":"uint256"},{"name":"segmentEnd","type":"uint256"}],
	 "outputs":[{"name":"","type":"bytes32[]"}]},
	{"type":"function","name":"computeCyclicScheduleSegment","stateMutability":"pure",
	 "inputs":[{"name":"terms","type":"bytes"},{"name":"segmentStart","type":"uint256"},{"name":"segmentEnd","type":"uint256"},{"name":"eventType","type":"uint8"}],
	 "outputs":[{"name":"","type":"bytes32[]"}]}
]`

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	TemplateRegistryABI = mustParseABI("TemplateRegistry", templateRegistryABI)
	AssetIssuerABI      = mustParseABI("AssetIssuer", assetIssuerABI)
	AssetRegistryABI    = mustParseABI("AssetRegistry", assetRegistryABI)
	AssetActorABI       = mustParseABI("AssetActor", assetActorABI)
	PAMEngineABI        = mustParseABI("PAMEngine", pamEngineABI)
	ERC20ABI            = mustParseABI("ERC20", erc20ABI)
)

func mustParseABI(name string, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("invalid " + name + " ABI: " + err.Error())
	}
	return parsed
}
