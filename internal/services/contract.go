// internal/services/contract.go
package services

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI of the ArtworkRegistry contract. Only the surface the backend
// prepares calls for or reads from is included.
const artworkRegistryABIJSON = `[
  {"type":"function","name":"registerArtwork","stateMutability":"nonpayable","inputs":[{"name":"metadataURI","type":"string"},{"name":"royaltyBps","type":"uint256"}],"outputs":[{"name":"tokenId","type":"uint256"}]},
  {"type":"function","name":"grantLicense","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"licensee","type":"address"},{"name":"durationDays","type":"uint256"},{"name":"termsHash","type":"string"},{"name":"licenseType","type":"uint8"}],"outputs":[{"name":"licenseId","type":"uint256"}]},
  {"type":"function","name":"revokeLicense","stateMutability":"nonpayable","inputs":[{"name":"licenseId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"transferArtwork","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"to","type":"address"}],"outputs":[]},
  {"type":"function","name":"getArtworkInfo","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"creator","type":"address"},{"name":"owner","type":"address"},{"name":"metadataURI","type":"string"},{"name":"royaltyBps","type":"uint256"},{"name":"isLicensed","type":"bool"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"owner","type":"address"}]},
  {"type":"function","name":"LICENSE_FEE","stateMutability":"view","inputs":[],"outputs":[{"name":"fee","type":"uint256"}]},
  {"type":"event","name":"ArtworkRegistered","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"metadataURI","type":"string","indexed":false}]},
  {"type":"event","name":"LicenseGranted","anonymous":false,"inputs":[{"name":"licenseId","type":"uint256","indexed":true},{"name":"tokenId","type":"uint256","indexed":true},{"name":"licensee","type":"address","indexed":true}]}
]`

var artworkRegistryABI = mustParseABI(artworkRegistryABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid contract ABI: " + err.Error())
	}
	return parsed
}
