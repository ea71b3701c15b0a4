package broker

// NSE security IDs for the default watchlist. The brokerage addresses
// instruments by numeric ID, not ticker.
var securityIDs = map[string]string{
	"RELIANCE":   "2885",
	"TCS":        "11536",
	"HDFCBANK":   "1333",
	"ICICIBANK":  "4963",
	"INFY":       "1594",
	"SBIN":       "3045",
	"KOTAKBANK":  "1922",
	"ADANIPORTS": "15083",
	"TATASTEEL":  "3499",
	"HINDALCO":   "1363",
}

// SecurityID resolves a ticker to the brokerage's security ID.
func SecurityID(symbol string) (string, bool) {
	id, ok := securityIDs[symbol]
	return id, ok
}

// RegisterSecurity adds or overrides a ticker-to-ID mapping, for symbols
// outside the default watchlist.
func RegisterSecurity(symbol, id string) {
	securityIDs[symbol] = id
}
