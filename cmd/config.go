package cmd

import (
	"errors"
	"strings"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/types"
)

// optionFlagSet returns the flags shared by run and serve.
func optionFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.String("base-url", "", "upstream origin, e.g. https://sgn.example.gov.br")
	flags.StringP("username", "u", "", "upstream account name")
	flags.StringP("password", "p", "", "upstream account password")
	flags.String("class", "", "digits-only class diary code")
	flags.String("period", "", "reporting period: TR1, TR2 or TR3")
	flags.String("default-grade", "", "grade used when no score resolves: A, B, C or NE")
	flags.String("default-attitude", "", "attitude applied to every observation row")
	flags.Bool("intelligent", false, "resolve each skill grade from the recorded scores")
	flags.Bool("push-final-grades", false, "also fill each student's final grade combo")
	flags.Duration("request-interval", lib.DefaultRequestInterval, "minimum delay between request starts")
	flags.Duration("request-timeout", lib.DefaultRequestTimeout, "per-request timeout")
	flags.Duration("session-ttl", lib.DefaultSessionTTL, "how long a session snapshot stays fresh")
	flags.Int64("retries", lib.DefaultRetries, "retries per failed submission")
	flags.Int64("attitude-workers", lib.DefaultAttitudeWorkers, "concurrent attitude submissions")
	flags.Int64("grade-workers", lib.DefaultGradeWorkers, "concurrent grade submissions")
	flags.Bool("insecure-skip-tls-verify", false, "skip upstream TLS certificate verification")
	return flags
}

func getNullString(flags *pflag.FlagSet, key string) null.String {
	v, _ := flags.GetString(key)
	return null.NewString(v, flags.Changed(key))
}

func getNullBool(flags *pflag.FlagSet, key string) null.Bool {
	v, _ := flags.GetBool(key)
	return null.NewBool(v, flags.Changed(key))
}

func getNullInt(flags *pflag.FlagSet, key string) null.Int {
	v, _ := flags.GetInt64(key)
	return null.NewInt(v, flags.Changed(key))
}

func getNullDuration(flags *pflag.FlagSet, key string) types.NullDuration {
	v, _ := flags.GetDuration(key)
	return types.NewNullDuration(v, flags.Changed(key))
}

func getOptions(flags *pflag.FlagSet) lib.Options {
	return lib.Options{
		BaseURL:               getNullString(flags, "base-url"),
		Username:              getNullString(flags, "username"),
		Password:              getNullString(flags, "password"),
		ClassCode:             getNullString(flags, "class"),
		Period:                getNullString(flags, "period"),
		DefaultGrade:          getNullString(flags, "default-grade"),
		DefaultAttitude:       getNullString(flags, "default-attitude"),
		Intelligent:           getNullBool(flags, "intelligent"),
		PushFinalGrades:       getNullBool(flags, "push-final-grades"),
		RequestInterval:       getNullDuration(flags, "request-interval"),
		RequestTimeout:        getNullDuration(flags, "request-timeout"),
		SessionTTL:            getNullDuration(flags, "session-ttl"),
		Retries:               getNullInt(flags, "retries"),
		AttitudeWorkers:       getNullInt(flags, "attitude-workers"),
		GradeWorkers:          getNullInt(flags, "grade-workers"),
		InsecureSkipTLSVerify: getNullBool(flags, "insecure-skip-tls-verify"),
	}
}

// getConsolidatedConfig merges the option layers: defaults, then the
// environment, then the command line.
func getConsolidatedConfig(flags *pflag.FlagSet) (lib.Options, error) {
	var envOpts lib.Options
	if err := envconfig.Process("", &envOpts); err != nil {
		return lib.Options{}, err
	}
	opts := envOpts.Apply(getOptions(flags))
	if errs := opts.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return opts, errors.New(strings.Join(msgs, "; "))
	}
	return opts, nil
}

// requireUpstream checks the fields every network-facing command needs.
func requireUpstream(opts lib.Options) error {
	if !opts.BaseURL.Valid || opts.BaseURL.String == "" {
		return errors.New("a base URL is required (--base-url or GRADEPUSH_BASE_URL)")
	}
	if !opts.Username.Valid || !opts.Password.Valid {
		return errors.New("credentials are required (--username/--password or GRADEPUSH_USERNAME/GRADEPUSH_PASSWORD)")
	}
	return nil
}
