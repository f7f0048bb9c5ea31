// Command forecastctl invokes a deployed chronocast forecaster and checks its
// forecasts against actuals.
//
// Usage:
//
//	forecastctl invoke   --function chronocast-forecaster --init "2025-08-17 00:00:00"
//	forecastctl forecast --url http://localhost:8080 --init "2025-08-17 00:00:00"
//	forecastctl compare  --function chronocast-forecaster --init "2025-08-17 00:00:00" \
//	    --table total_load_data --time-column timestamp --value-column total_load
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/urfave/cli/v2"

	"github.com/HatiCode/chronocast/pkg/adapters"
	"github.com/HatiCode/chronocast/pkg/forecast"
	"github.com/HatiCode/chronocast/pkg/httpx"
	"github.com/HatiCode/chronocast/pkg/tls"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "forecastctl",
		Usage:   "Invoke the chronocast forecaster and compare forecasts with actuals",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json, csv; compare supports table and json)",
			},
			&cli.StringFlag{
				Name:    "timezone",
				Value:   "UTC",
				Usage:   "Zone of naive timestamps",
				EnvVars: []string{"TIMEZONE"},
			},
		},

		Commands: []*cli.Command{
			invokeCommand(),
			forecastCommand(),
			compareCommand(),
		},
	}
}

func invocationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "init",
			Usage:    "Initialization timestamp (YYYY-MM-DD HH:mm:ss)",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "frequency",
			Value: 15,
			Usage: "Series frequency in minutes",
		},
		&cli.IntFlag{
			Name:  "context-length",
			Value: 2016,
			Usage: "Past steps sent as context",
		},
		&cli.IntFlag{
			Name:  "prediction-length",
			Value: 96,
			Usage: "Future steps to forecast",
		},
		&cli.StringFlag{
			Name:  "quantiles",
			Usage: "Quantile levels, e.g. 0.1,0.5,0.9 or p10,p50,p90 (default: the forecaster's)",
		},
	}
}

func lambdaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "function",
			Usage:   "Forecaster Lambda function name or ARN",
			EnvVars: []string{"FORECAST_FUNCTION"},
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "AWS region",
			EnvVars: []string{"AWS_REGION"},
		},
	}
}

func httpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Usage:   "Forecaster service base URL",
			EnvVars: []string{"FORECAST_URL"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: 2 * time.Minute,
			Usage: "HTTP request timeout",
		},
		&cli.StringFlag{Name: "tls-cert-file", Usage: "Client certificate for mutual TLS", EnvVars: []string{"TLS_CERT_FILE"}},
		&cli.StringFlag{Name: "tls-key-file", Usage: "Client private key for mutual TLS", EnvVars: []string{"TLS_KEY_FILE"}},
		&cli.StringFlag{Name: "tls-ca-file", Usage: "CA certificate to verify the service", EnvVars: []string{"TLS_CA_FILE"}},
	}
}

func clickhouseFlags() []cli.Flag {
	def := adapters.DefaultClickHouseConfig()
	return []cli.Flag{
		&cli.StringFlag{Name: "clickhouse-host", Value: def.Host, Usage: "ClickHouse host", EnvVars: []string{"CLICKHOUSE_HOST"}},
		&cli.IntFlag{Name: "clickhouse-port", Value: def.Port, Usage: "ClickHouse native port", EnvVars: []string{"CLICKHOUSE_PORT"}},
		&cli.StringFlag{Name: "clickhouse-database", Value: def.Database, Usage: "ClickHouse database", EnvVars: []string{"CLICKHOUSE_DATABASE"}},
		&cli.StringFlag{Name: "clickhouse-user", Value: def.Username, Usage: "ClickHouse user", EnvVars: []string{"CLICKHOUSE_USER"}},
		&cli.StringFlag{Name: "clickhouse-password", Usage: "ClickHouse password", EnvVars: []string{"CLICKHOUSE_PASSWORD"}},
		&cli.BoolFlag{Name: "clickhouse-secure", Usage: "Use TLS for ClickHouse", EnvVars: []string{"CLICKHOUSE_SECURE"}},
		&cli.StringFlag{Name: "table", Usage: "Table holding the actuals", EnvVars: []string{"SOURCE_TABLE"}, Required: true},
		&cli.StringFlag{Name: "time-column", Value: "timestamp", Usage: "Timestamp column", EnvVars: []string{"SOURCE_TIME_COLUMN"}},
		&cli.StringFlag{Name: "value-column", Value: "value", Usage: "Value column", EnvVars: []string{"SOURCE_VALUE_COLUMN"}},
		&cli.StringFlag{Name: "lookback", Value: "14d", Usage: "Actuals shown before the initialization timestamp (Go duration or whole days, e.g. 14d)"},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func invokeCommand() *cli.Command {
	return &cli.Command{
		Name:  "invoke",
		Usage: "Invoke the forecaster Lambda function and print the forecast",
		Flags: concat(invocationFlags(), lambdaFlags()),
		Action: func(c *cli.Context) error {
			f, err := newLambdaForecaster(c)
			if err != nil {
				return err
			}
			return runForecast(c, f)
		},
	}
}

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Request a forecast from the forecaster HTTP service",
		Flags: concat(invocationFlags(), httpFlags()),
		Action: func(c *cli.Context) error {
			f, err := newHTTPForecaster(c)
			if err != nil {
				return err
			}
			return runForecast(c, f)
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Forecast and join the result with actuals from ClickHouse",
		Flags: concat(invocationFlags(), lambdaFlags(), httpFlags(), clickhouseFlags()),
		Action: runCompare,
	}
}

func invocation(c *cli.Context) (forecast.Invocation, error) {
	levels, err := forecast.ParseQuantileLevels(c.String("quantiles"))
	if err != nil {
		return forecast.Invocation{}, err
	}
	return forecast.Invocation{
		InitializationTimestamp: c.String("init"),
		Frequency:               c.Int("frequency"),
		ContextLength:           c.Int("context-length"),
		PredictionLength:        c.Int("prediction-length"),
		QuantileLevels:          levels,
	}, nil
}

func location(c *cli.Context) (*time.Location, error) {
	loc, err := time.LoadLocation(c.String("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.String("timezone"), err)
	}
	return loc, nil
}

func newLambdaForecaster(c *cli.Context) (*lambdaForecaster, error) {
	function := c.String("function")
	if function == "" {
		return nil, errors.New("--function (or FORECAST_FUNCTION) is required")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if region := c.String("region"); region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(c.Context, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &lambdaForecaster{api: lambda.NewFromConfig(awsCfg), function: function}, nil
}

func newHTTPForecaster(c *cli.Context) (*httpForecaster, error) {
	url := c.String("url")
	if url == "" {
		return nil, errors.New("--url (or FORECAST_URL) is required")
	}

	tlsCfg := tls.Config{
		CertFile: c.String("tls-cert-file"),
		KeyFile:  c.String("tls-key-file"),
		CAFile:   c.String("tls-ca-file"),
	}
	tlsCfg.Enabled = tlsCfg.CertFile != "" || tlsCfg.CAFile != ""

	client, err := httpx.NewClient(tlsCfg, c.Duration("timeout"))
	if err != nil {
		return nil, err
	}
	return &httpForecaster{client: client, baseURL: url}, nil
}

func runForecast(c *cli.Context, f forecaster) error {
	in, err := invocation(c)
	if err != nil {
		return err
	}

	table, err := f.Forecast(c.Context, in)
	if err != nil {
		return err
	}

	return writeTable(c.App.Writer, c.String("format"), table)
}

func writeTable(w io.Writer, format string, table forecast.Table) error {
	switch format {
	case "json":
		return printRowsJSON(w, table)
	case "csv":
		return printRowsCSV(w, table)
	case "table":
		return printTable(w, table)
	default:
		return fmt.Errorf("unknown format %q (must be table, json or csv)", format)
	}
}

func runCompare(c *cli.Context) error {
	lookback, err := parseLookback(c.String("lookback"))
	if err != nil {
		return err
	}

	var f forecaster
	switch {
	case c.String("function") != "":
		f, err = newLambdaForecaster(c)
	case c.String("url") != "":
		f, err = newHTTPForecaster(c)
	default:
		return errors.New("one of --function or --url is required")
	}
	if err != nil {
		return err
	}

	src, err := adapters.NewClickHouseSource(adapters.ClickHouseConfig{
		Host:        c.String("clickhouse-host"),
		Port:        c.Int("clickhouse-port"),
		Database:    c.String("clickhouse-database"),
		Username:    c.String("clickhouse-user"),
		Password:    c.String("clickhouse-password"),
		Secure:      c.Bool("clickhouse-secure"),
		DialTimeout: 10 * time.Second,
	}, adapters.Table{
		Name:        c.String("table"),
		TimeColumn:  c.String("time-column"),
		ValueColumn: c.String("value-column"),
	})
	if err != nil {
		return err
	}
	defer src.Close()

	in, err := invocation(c)
	if err != nil {
		return err
	}
	loc, err := location(c)
	if err != nil {
		return err
	}

	cmp, err := compareRun(c.Context, f, src, in, loc, lookback)
	if err != nil {
		return err
	}

	switch c.String("format") {
	case "json":
		return printComparisonJSON(c.App.Writer, cmp)
	case "table":
		return printComparisonTable(c.App.Writer, cmp)
	default:
		return fmt.Errorf("unknown format %q (must be table or json)", c.String("format"))
	}
}
