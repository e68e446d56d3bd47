package accounts

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"cennzxScope/internal/model"
)

// devAccounts are the well-known sr25519 development accounts.
var devAccounts = map[string]model.Address{
	"//Alice":   "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
	"//Bob":     "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty",
	"//Charlie": "5FLSigC9HGRKVhB9FiEo4Y3koPsNmBmLJbpXg2mp1hXcS59Y",
	"//Dave":    "5DAAnrj7VHTznn2AWBemMuyBwZWs6FNFjdyVXUeYum3PTXFy",
	"//Eve":     "5HGjWAeFDfFCWPsjFQdVV2Msvz2XtMktvgocEZcCj68kUMaw",
	"//Ferdie":  "5CiPPseXPECbkjWCa6MnjNokrgYjMqmKndv2rSnekmSK2DjL",
}

// DevAddress returns the address of a development seed such as "//Alice".
func DevAddress(seed string) (model.Address, bool) {
	address, ok := devAccounts[normalizeSeed(seed)]
	return address, ok
}

// DevSeeds lists the development seeds in a stable order.
func DevSeeds() []string {
	return []string{"//Alice", "//Bob", "//Charlie", "//Dave", "//Eve", "//Ferdie"}
}

// HashedAddress derives a stand-in address from a seed by hashing it. It is
// only meaningful to the simulated node, which has no real keyring.
func HashedAddress(seed string, prefix uint16) (model.Address, error) {
	key := blake2b.Sum256([]byte(normalizeSeed(seed)))
	return Encode(key[:], prefix)
}

// HashedSeedResolver resolves seeds with HashedAddress.
func HashedSeedResolver(prefix uint16) SeedResolver {
	return func(_ context.Context, seed string) (model.Address, error) {
		return HashedAddress(seed, prefix)
	}
}

func normalizeSeed(seed string) string {
	seed = strings.TrimSpace(seed)
	if len(seed) > 2 && strings.HasPrefix(seed, "//") {
		return "//" + strings.ToUpper(seed[2:3]) + seed[3:]
	}
	return seed
}

func errUnknownSeed(seed string) error {
	return fmt.Errorf("unknown seed %q and no keyring to resolve it", seed)
}
