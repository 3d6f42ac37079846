package upstream

import "net/http"

// The upstream serves different markup (or refuses outright) under generic
// client headers, so every request carries the header set a desktop browser
// would send.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

func pageHeaders(baseURL string) http.Header {
	h := make(http.Header)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	h.Set("Cache-Control", "max-age=0")
	h.Set("Referer", baseURL+"/")
	h.Set("User-Agent", userAgent)
	return h
}

func apiHeaders(baseURL string) http.Header {
	h := make(http.Header)
	h.Set("Accept", "*/*")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	h.Set("Cache-Control", "max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Origin", baseURL)
	h.Set("Referer", baseURL+"/")
	h.Set("User-Agent", userAgent)
	return h
}

func videoHeaders(baseURL, rangeHeader, ifRangeHeader string) http.Header {
	h := make(http.Header)
	h.Set("Accept", "*/*")
	h.Set("Accept-Encoding", "identity;q=1, *;q=0")
	h.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	h.Set("Referer", baseURL+"/")
	h.Set("User-Agent", userAgent)
	if rangeHeader != "" {
		h.Set("Range", rangeHeader)
	}
	if ifRangeHeader != "" {
		h.Set("If-Range", ifRangeHeader)
	}
	return h
}
