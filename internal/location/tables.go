package location

type countryAlias struct {
	alias   string
	country string
}

type cityInfo struct {
	city    string
	country string
	region  string
}

// countryAliases is matched in order; the first hit wins.
var countryAliases = []countryAlias{
	{"usa", "United States"},
	{"us", "United States"},
	{"united states", "United States"},
	{"u.s.", "United States"},
	{"uk", "United Kingdom"},
	{"u.k.", "United Kingdom"},
	{"united kingdom", "United Kingdom"},
	{"england", "United Kingdom"},
	{"india", "India"},
	{"canada", "Canada"},
	{"germany", "Germany"},
	{"france", "France"},
	{"spain", "Spain"},
	{"italy", "Italy"},
	{"netherlands", "Netherlands"},
	{"poland", "Poland"},
	{"ireland", "Ireland"},
	{"singapore", "Singapore"},
	{"australia", "Australia"},
	{"new zealand", "New Zealand"},
	{"japan", "Japan"},
	{"korea", "South Korea"},
	{"south korea", "South Korea"},
	{"uae", "United Arab Emirates"},
	{"united arab emirates", "United Arab Emirates"},
}

var cities = []cityInfo{
	{"bangalore", "India", "Karnataka"},
	{"bengaluru", "India", "Karnataka"},
	{"hyderabad", "India", "Telangana"},
	{"pune", "India", "Maharashtra"},
	{"mumbai", "India", "Maharashtra"},
	{"gurgaon", "India", "Haryana"},
	{"gurugram", "India", "Haryana"},
	{"noida", "India", "Uttar Pradesh"},
	{"delhi", "India", "Delhi"},
	{"chennai", "India", "Tamil Nadu"},
	{"kolkata", "India", "West Bengal"},
	{"san francisco", "United States", "California"},
	{"new york", "United States", "New York"},
	{"seattle", "United States", "Washington"},
	{"austin", "United States", "Texas"},
	{"london", "United Kingdom", ""},
	{"berlin", "Germany", ""},
	{"amsterdam", "Netherlands", ""},
	{"dublin", "Ireland", ""},
	{"singapore", "Singapore", ""},
	{"tokyo", "Japan", ""},
	{"sydney", "Australia", "New South Wales"},
}

var (
	hybridTokens     = []string{"hybrid", "remote +", "remote/hybrid"}
	onsiteTokens     = []string{"onsite", "on-site", "on site"}
	remoteTokens     = []string{"remote", "work from home", "wfh", "distributed", "anywhere"}
	remoteOnlyTokens = []string{"remote", "anywhere", "hybrid", "onsite", "on-site"}
)

func lookupCountryAlias(value string) (string, bool) {
	for _, entry := range countryAliases {
		if entry.alias == value {
			return entry.country, true
		}
	}
	return "", false
}
