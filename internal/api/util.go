package api

import "regexp"

// battleIDRegex matches the canonical UUID form used for battle ids.
var battleIDRegex = regexp.MustCompile("^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$")
