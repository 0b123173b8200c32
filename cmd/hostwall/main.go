package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mysteriumnetwork/hostwall/config"
	"github.com/mysteriumnetwork/hostwall/enumerator"
	"github.com/mysteriumnetwork/hostwall/heartbeat"
	"github.com/mysteriumnetwork/hostwall/reporter"
	"github.com/mysteriumnetwork/hostwall/target"
	"github.com/mysteriumnetwork/hostwall/validator"
	"github.com/mysteriumnetwork/hostwall/workflow"
)

var version = "undefined"

var (
	// global options
	showVersion = flag.Bool("version", false, "show program version and exit")
	timeout     = flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	configFile  = flag.String("config", "", "YAML configuration file")
	debug       = flag.Bool("debug", false, "log failed lookups")

	// target options
	inputFile      = flag.String("input", "", "file with addresses, CIDR blocks or ranges, one per line")
	domain         = flag.String("domain", "", "target domain")
	dictionaryFile = flag.String("dictionary", "", "file with subdomain labels to guess, one per line")

	// enumerator options
	concurrency = flag.Int("concurrency", 100, "maximum lookups in flight per technique, 0 means unbounded")
	techniques  = flag.String("techniques", "reverse,certificate,headers", "comma separated techniques: "+strings.Join(config.Techniques, ","))
	bingKey     = flag.String("bing-key", "", "Bing Web Search API key")
	CFAPIToken  = flag.String("cf-api-token", "", "Cloudflare API token")
	server      = flag.String("server", "", "DNS server to query instead of the system resolver")
	tlsTimeout  = flag.Duration("tls-timeout", 600*time.Millisecond, "certificate handshake timeout")
	httpTimeout = flag.Duration("http-timeout", 10*time.Second, "web source request timeout")
	rateEvery   = flag.Duration("rate-every", 0, "ratelimit period of web sources (inverse of frequency)")

	headersTimeout   = flag.Duration("headers-timeout", 2*time.Second, "headers technique request timeout")
	headersHTTPPort  = flag.String("headers-http-port", "", "port the headers technique sends http requests to instead of 80")
	headersHTTPSPort = flag.String("headers-https-port", "", "port the headers technique sends https requests to instead of 443")

	// validator options
	fcrdns       = flag.Bool("fcrdns", false, "confirm records with forward lookups")
	fcrdnsPolicy = flag.String("fcrdns-policy", "scoped", "forward lookup policy: scoped, claimed or any")

	// output options
	exclude             = flag.String("exclude", "", "drop records with names matching this regular expression")
	output              = flag.String("output", "plain", "output format: plain, csv, json or clean")
	pagerdutyRoutingKey = flag.String("pagerduty-routing-key", "", "PagerDuty Events V2 routing key")
	heartbeatURL        = flag.String("heartbeat-url", "", "URL to post a run summary to")
	database            = flag.String("database", "", "SQLite database keeping every record found")
)

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			return nil, err
		}
	}

	// explicitly set flags take precedence over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "concurrency":
			cfg.Concurrency = *concurrency
		case "techniques":
			cfg.Techniques = splitList(*techniques)
		case "bing-key":
			cfg.BingKey = *bingKey
		case "cf-api-token":
			cfg.CFAPIToken = *CFAPIToken
		case "server":
			cfg.Server = *server
		case "tls-timeout":
			cfg.TLSTimeout = *tlsTimeout
		case "http-timeout":
			cfg.HTTPTimeout = *httpTimeout
		case "rate-every":
			cfg.RateEvery = *rateEvery
		case "headers-timeout":
			cfg.HeadersTimeout = *headersTimeout
		case "headers-http-port":
			cfg.HeadersHTTPPort = *headersHTTPPort
		case "headers-https-port":
			cfg.HeadersHTTPSPort = *headersHTTPSPort
		case "fcrdns":
			cfg.FCrDNS = *fcrdns
		case "fcrdns-policy":
			cfg.FCrDNSPolicy = *fcrdnsPolicy
		case "exclude":
			cfg.Exclude = *exclude
		case "output":
			cfg.Output = *output
		case "pagerduty-routing-key":
			cfg.PagerDutyRoutingKey = *pagerdutyRoutingKey
		case "heartbeat-url":
			cfg.HeartbeatURL = *heartbeatURL
		case "database":
			cfg.Database = *database
		case "debug":
			cfg.Debug = *debug
		}
	})

	for env, opt := range map[string]*string{
		"BING_API_KEY":          &cfg.BingKey,
		"CF_API_TOKEN":          &cfg.CFAPIToken,
		"PAGERDUTY_ROUTING_KEY": &cfg.PagerDutyRoutingKey,
	} {
		if *opt == "" {
			*opt = os.Getenv(env)
		}
	}

	return cfg, cfg.Validate()
}

func splitList(s string) []string {
	var res []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res
}

func loadTargets() (*target.Set, error) {
	lines := flag.Args()
	if *inputFile != "" {
		fileLines, err := target.ReadLines(*inputFile)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fileLines...)
	}
	ips, err := target.ExpandLines(lines)
	if err != nil {
		return nil, err
	}

	var names []string
	if *dictionaryFile != "" {
		names, err = target.ReadLines(*dictionaryFile)
		if err != nil {
			return nil, err
		}
	}

	return target.New(ips, *domain, names)
}

func run() int {
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		return 0
	}

	cfg, err := loadConfig()
	if err != nil {
		logrus.Errorf("bad configuration: %v", err)
		return 2
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	set, err := loadTargets()
	if err != nil {
		logrus.Errorf("bad targets: %v", err)
		return 2
	}

	resolvers, err := newResolvers(cfg)
	if err != nil {
		logrus.Errorf("unable to set up DNS: %v", err)
		return 1
	}

	engine := enumerator.NewEngine(cfg.Concurrency, buildSources(cfg, resolvers)...)
	if cfg.RateEvery > 0 {
		for _, tag := range webSources {
			engine.SetRateLimit(tag, cfg.RateEvery)
		}
	}

	policy, _ := validator.ParsePolicy(cfg.FCrDNSPolicy)
	fcrdnsValidator := validator.NewFCrDNS(resolvers.lookup, cfg.Concurrency).SetPolicy(policy, set)

	drain, closeDrain, err := buildReporter(cfg)
	if err != nil {
		logrus.Errorf("unable to set up reporting: %v", err)
		return 1
	}
	defer closeDrain()

	var beat heartbeat.Heartbeat = heartbeat.NewLogHeartbeat(logrus.StandardLogger())
	if cfg.HeartbeatURL != "" {
		beat = heartbeat.NewURLHeartbeat(cfg.HeartbeatURL)
	}

	var filter workflow.StringMatcher
	if cfg.Exclude != "" {
		filter = regexp.MustCompile(cfg.Exclude)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cl := context.WithTimeout(ctx, *timeout)
	defer cl()

	runner := workflow.NewRunner(engine, filter, fcrdnsValidator, drain, beat)
	if _, err := runner.Run(ctx, set, cfg.FCrDNS); err != nil {
		logrus.Errorf("run finished with errors: %v", err)
		return 1
	}

	return 0
}

func buildReporter(cfg *config.Config) (reporter.Reporter, func(), error) {
	format, _ := reporter.ParseFormat(cfg.Output)
	reporters := []reporter.Reporter{reporter.NewTextReporter(os.Stdout, format)}
	closer := func() {}

	if cfg.PagerDutyRoutingKey != "" {
		reporters = append(reporters, reporter.NewPagerDutyReporter(cfg.PagerDutyRoutingKey))
	}
	if cfg.Database != "" {
		db, err := reporter.NewSQLiteReporter(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		reporters = append(reporters, db)
		closer = func() { db.Close() }
	}
	if cfg.Debug {
		reporters = append(reporters, reporter.NewLogReporter(logrus.StandardLogger()))
	}

	return reporter.NewMultiReporter(reporters...), closer, nil
}

func main() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	os.Exit(run())
}
