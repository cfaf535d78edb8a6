package snapshot

// satoshiPerBTC is the fixed-point scale for balance thresholds below.
const satoshiPerBTC = 100_000_000

// bucketThresholds holds the lower bound (inclusive, in satoshi) of each of
// the 19 quasi-logarithmic size classes the source uses, from zero balance
// through >100,000 BTC. A balance falls into the highest class whose
// threshold it meets or exceeds.
var bucketThresholds = [...]uint64{
	0,
	1,                    // dust: any nonzero balance below 0.001 BTC
	satoshiPerBTC / 1000, // 0.001 BTC
	satoshiPerBTC / 100,  // 0.01 BTC
	satoshiPerBTC / 10,   // 0.1 BTC
	satoshiPerBTC,        // 1 BTC
	2 * satoshiPerBTC,
	5 * satoshiPerBTC,
	10 * satoshiPerBTC,
	20 * satoshiPerBTC,
	50 * satoshiPerBTC,
	100 * satoshiPerBTC,
	200 * satoshiPerBTC,
	500 * satoshiPerBTC,
	1_000 * satoshiPerBTC,
	2_000 * satoshiPerBTC,
	10_000 * satoshiPerBTC,
	50_000 * satoshiPerBTC,
	100_000 * satoshiPerBTC,
}

const numBuckets = len(bucketThresholds)

// bucketIndex returns the size-class index for a balance given in satoshi.
func bucketIndex(balanceSatoshi uint64) int {
	idx := 0
	for i, t := range bucketThresholds {
		if balanceSatoshi >= t {
			idx = i
		} else {
			break
		}
	}
	return idx
}
