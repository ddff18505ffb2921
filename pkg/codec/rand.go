package codec

import "crypto/rand"

var cryptoRandReader = rand.Reader
