package utils

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"os"

	"github.com/Luismorlan/honeybee/utils/dotenv"
	Logger "github.com/Luismorlan/honeybee/utils/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

func IsProdEnv() bool {
	return os.Getenv(dotenv.EnvKey) == dotenv.ProdEnv
}

// TextToMd5Hash returns the hex md5 digest of text.
func TextToMd5Hash(text string) (string, error) {
	hasher := md5.New()
	if _, err := hasher.Write([]byte(text)); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// StableSeed maps an arbitrary key onto a seed usable by x/exp/rand sources.
func StableSeed(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

// ImmediatePrintError logs the error where it happens and hands it back, so
// call sites can `return utils.ImmediatePrintError(err)`.
func ImmediatePrintError(err error) error {
	if err != nil {
		Logger.Log.Errorln(err)
	}
	return err
}

// GetRandomNumberInRangeStandardDeviation draws from N(mean, stdDev) and clamps
// the result into [0, 2*mean].
func GetRandomNumberInRangeStandardDeviation(mean, stdDev float64) float64 {
	return GetSeededNumberInRangeStandardDeviation(mean, stdDev, rand.Uint64())
}

func GetSeededNumberInRangeStandardDeviation(mean, stdDev float64, seed uint64) float64 {
	dist := distuv.Normal{
		Mu:    mean,
		Sigma: stdDev,
		Src:   rand.NewSource(seed),
	}
	return math.Max(0, math.Min(2*mean, dist.Rand()))
}

func PrettyPrint(data interface{}) string {
	p, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s \n", p)
}
