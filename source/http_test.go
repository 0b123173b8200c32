package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mysteriumnetwork/hostwall/record"
)

func TestBingAPI(t *testing.T) {
	var pages int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if q := r.URL.Query().Get("q"); q != "ip:192.0.2.1" {
			t.Errorf("unexpected query %q", q)
		}
		atomic.AddInt32(&pages, 1)

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		count := BingPageSize
		if offset > 0 {
			count = 1
		}
		var resp bingResponse
		for i := 0; i < count; i++ {
			host := "a.example.com"
			if offset > 0 {
				host = "b.example.com"
			}
			resp.WebPages.Value = append(resp.WebPages.Value, struct {
				URL string `json:"url"`
			}{URL: fmt.Sprintf("https://%s/page/%d", host, i)})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	set := mustSet(t, []string{"192.0.2.1"}, "", nil)
	recs, errs := runJob(t, NewBingAPI("secret", 0).SetBaseURL(srv.URL), set)
	if len(errs) != 0 {
		t.Fatalf("lookup failed: %v", errs)
	}
	want := []record.Record{
		{IP: "192.0.2.1", Name: "a.example.com", Source: "bing-api"},
		{IP: "192.0.2.1", Name: "b.example.com", Source: "bing-api"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("records = %v, want %v", recs, want)
	}
	if pages != 2 {
		t.Errorf("fetched %d pages, want 2", pages)
	}

	_, errs = runJob(t, NewBingAPI("wrong", 0).SetBaseURL(srv.URL), set)
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnauthorized) {
		t.Errorf("errors = %v, want ErrUnauthorized", errs)
	}
}

func TestBingAPIMaxPages(t *testing.T) {
	var pages int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pages, 1)
		var resp bingResponse
		for i := 0; i < BingPageSize; i++ {
			resp.WebPages.Value = append(resp.WebPages.Value, struct {
				URL string `json:"url"`
			}{URL: "http://full.example.com/"})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	set := mustSet(t, []string{"192.0.2.1"}, "", nil)
	recs, _ := runJob(t, NewBingAPI("k", 0).SetBaseURL(srv.URL).SetMaxPages(3), set)
	if pages != 3 {
		t.Errorf("fetched %d pages, want 3", pages)
	}
	if len(recs) != 1 {
		t.Errorf("records = %v, want one", recs)
	}
}

func TestBingWeb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("first") != "1" {
			t.Errorf("unexpected page %q", r.URL.Query().Get("first"))
		}
		fmt.Fprint(w, `<html><body><ol>
<li><cite>https://www.example.com › about</cite></li>
<li><cite>shop.example.com/cart</cite></li>
<li><cite>192.0.2.1/status</cite></li>
</ol></body></html>`)
	}))
	defer srv.Close()

	set := mustSet(t, []string{"192.0.2.1"}, "", nil)
	recs, errs := runJob(t, NewBingWeb(0).SetBaseURL(srv.URL), set)
	if len(errs) != 0 {
		t.Fatalf("lookup failed: %v", errs)
	}
	want := []record.Record{
		{IP: "192.0.2.1", Name: "www.example.com", Source: "bing-web"},
		{IP: "192.0.2.1", Name: "shop.example.com", Source: "bing-web"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("records = %v, want %v", recs, want)
	}
}

func TestPassiveDNS(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		switch r.URL.Path {
		case "/1.2.3.0/24":
			fmt.Fprint(w, `<table>
<tr><th>#</th><th>Domain</th><th>Address</th></tr>
<tr><td>1</td><td>one.example.com</td><td>1.2.3.4</td></tr>
<tr><td>2</td><td>other.example.com</td><td>1.2.3.5</td></tr>
<tr><td>3</td><td>nine.example.com</td><td>1.2.3.9</td></tr>
</table>`)
		case "/5.6.7.0/24":
			fmt.Fprint(w, `<table><tr><td>1</td><td>five.example.net</td><td>5.6.7.8</td></tr></table>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	set := mustSet(t, []string{"1.2.3.4", "1.2.3.9", "5.6.7.8"}, "", nil)
	recs, errs := runJob(t, NewPassiveDNS(0).SetBaseURL(srv.URL), set)
	if len(errs) != 0 {
		t.Fatalf("lookup failed: %v", errs)
	}
	if requests != 2 {
		t.Errorf("made %d requests, want 2", requests)
	}
	want := []record.Record{
		{IP: "1.2.3.4", Name: "one.example.com", Source: "passive-dns"},
		{IP: "1.2.3.9", Name: "nine.example.com", Source: "passive-dns"},
		{IP: "5.6.7.8", Name: "five.example.net", Source: "passive-dns"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("records = %v, want %v", recs, want)
	}
}

func TestViewDNS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("host") != "192.0.2.1" {
			t.Errorf("unexpected host %q", r.URL.Query().Get("host"))
		}
		fmt.Fprint(w, `<table border="1">
<tr><td>Domain</td><td>Last Resolved Date</td></tr>
<tr><td>alpha.example.com</td><td>2022-01-01</td></tr>
<tr><td>beta.example.com</td><td>2022-02-01</td></tr>
</table>`)
	}))
	defer srv.Close()

	set := mustSet(t, []string{"192.0.2.1"}, "", nil)
	recs, errs := runJob(t, NewViewDNS(0).SetBaseURL(srv.URL), set)
	if len(errs) != 0 {
		t.Fatalf("lookup failed: %v", errs)
	}
	want := []record.Record{
		{IP: "192.0.2.1", Name: "alpha.example.com", Source: "viewdns"},
		{IP: "192.0.2.1", Name: "beta.example.com", Source: "viewdns"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("records = %v, want %v", recs, want)
	}
}

func TestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "BIGipServerpool.intranet.example.com_80", Value: "1"})
		http.Redirect(w, r, "https://portal.example.com/login", http.StatusFound)
	}))
	defer srv.Close()

	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	set := mustSet(t, []string{"127.0.0.1"}, "", nil)
	// https lands on the plain listener, so only the http request succeeds
	recs, errs := runJob(t, NewHeaders(0).SetPorts(port, port), set)
	if len(errs) != 0 {
		t.Fatalf("lookup failed: %v", errs)
	}
	want := []record.Record{
		{IP: "127.0.0.1", Name: "portal.example.com", Source: "http-location"},
		{IP: "127.0.0.1", Name: "pool.intranet.example.com", Source: "http-bigip"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("records = %v, want %v", recs, want)
	}
}

func TestHeadersBothFail(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	l.Close()

	set := mustSet(t, []string{"127.0.0.1"}, "", nil)
	_, errs := runJob(t, NewHeaders(0).SetPorts(port, port), set)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one", errs)
	}
	if !strings.Contains(errs[0].Error(), "2 errors occurred") {
		t.Errorf("unexpected error %v", errs[0])
	}
}

func TestCrtSh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "%.example.com" || r.URL.Query().Get("output") != "json" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[
			{"common_name": "example.com", "name_value": "example.com\nwww.example.com"},
			{"common_name": "*.api.example.com", "name_value": "*.api.example.com\nadmin@example.com"},
			{"common_name": "evil.com", "name_value": "example.com.evil.com"},
			{"common_name": "gone.example.com", "name_value": "gone.example.com"}
		]`)
	}))
	defer srv.Close()

	r := &stubResolver{hosts: map[string][]string{
		"example.com":          {"10.0.0.1"},
		"www.example.com":      {"10.0.0.2"},
		"api.example.com":      {"10.0.0.3"},
		"example.com.evil.com": {"10.0.0.9"},
	}}
	set := mustSet(t, nil, "example.com", nil)
	recs, errs := runJob(t, NewCrtSh(r, 0).SetBaseURL(srv.URL), set)
	if len(errs) != 0 {
		t.Fatalf("lookup failed: %v", errs)
	}
	sort.Sort(record.Records(recs))

	want := []record.Record{
		{IP: "10.0.0.1", Name: "example.com", Source: "crtsh"},
		{IP: "10.0.0.2", Name: "www.example.com", Source: "crtsh"},
		{IP: "10.0.0.3", Name: "api.example.com", Source: "crtsh"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("records = %v, want %v", recs, want)
	}
}

func TestCrtShFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "%.broken.example" {
			fmt.Fprint(w, "<html>")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := NewCrtSh(&stubResolver{}, 0).SetBaseURL(srv.URL)
	for _, domain := range []string{"missing.example", "broken.example"} {
		_, errs := runJob(t, src, mustSet(t, nil, domain, nil))
		if len(errs) != 1 {
			t.Errorf("%s: errors = %v, want one", domain, errs)
		}
	}

	if _, err := src.Plan(context.Background(), mustSet(t, []string{"10.0.0.1"}, "", nil)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("plan without a domain: %v", err)
	}
}
