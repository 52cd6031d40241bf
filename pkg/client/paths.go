package client

import (
	"net/url"
	"strconv"
)

func productPath(id int64, suffix string) string {
	return "/api/products/" + strconv.FormatInt(id, 10) + suffix
}

func cartPath(session, suffix string) string {
	return "/api/carts/" + url.PathEscape(session) + suffix
}

func setQuery(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
