// Trigctl is the command-line client for a running triggerd. It queries
// status and stations, submits alerts and streams live events over HTTP and
// WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/large-farva/fast-trigger/internal/ctl"
)

var (
	host    string
	jsonOut bool
)

func client(cmd *cobra.Command) *ctl.Client {
	return ctl.NewClient(host, cmd.OutOrStdout(), jsonOut)
}

var rootCmd = &cobra.Command{
	Use:   "trigctl",
	Short: "Control a running triggerd fast-trigger daemon",
	Long: `trigctl talks to triggerd over HTTP and WebSocket.

Examples:
  trigctl status
  trigctl stations
  trigctl station chilbolton --probe
  trigctl visibility chilbolton 12:30:49.42 +12:23:28.04 --duration 3600
  trigctl trigger chilbolton 187.7059 12.3911 --ivorn 'ivo://nasa.gsfc.gcn/SWIFT#BAT_GRB_Pos_517234-259'
  trigctl voevent chilbolton alert.xml --live
  trigctl watch --filter request,stage`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon state, uptime and the last request",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client(cmd).Status(cmd.Context())
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the daemon is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client(cmd).Health(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI and daemon version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client(cmd).VersionInfo(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the daemon's running configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client(cmd).Config(cmd.Context())
	},
}

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List configured stations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client(cmd).Stations(cmd.Context())
	},
}

var stationCmd = &cobra.Command{
	Use:   "station NAME",
	Short: "Show one station; --probe queries its live availability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		probe, _ := cmd.Flags().GetBool("probe")
		return client(cmd).Station(cmd.Context(), args[0], probe)
	},
}

var visibilityCmd = &cobra.Command{
	Use:   "visibility STATION RA DEC",
	Short: "Check target elevation and calibrator choice without triggering",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetInt("duration")
		at, _ := cmd.Flags().GetString("at")
		cal, _ := cmd.Flags().GetString("calibrator")
		return client(cmd).Visibility(cmd.Context(), ctl.VisibilityOptions{
			Station:         args[0],
			RA:              args[1],
			Dec:             args[2],
			DurationSeconds: duration,
			At:              at,
			Calibrator:      cal,
		})
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger STATION RA DEC",
	Short: "Request an observation of a position",
	Long: `Request an observation of a position. RA and DEC are sexagesimal
(12:30:49.42 +12:23:28.04) or decimal degrees. Without --live or --debug the
daemon's default mode applies. Put -- before the station when the
declination is negative: trigctl trigger -- chilbolton 10.5 -12.25`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		opts := ctl.TriggerOptions{Station: args[0], RA: args[1], Dec: args[2]}
		opts.Kind, _ = f.GetString("kind")
		opts.IVORN, _ = f.GetString("ivorn")
		opts.DurationSeconds, _ = f.GetInt("duration")
		opts.Action, _ = f.GetString("action")
		opts.Requester, _ = f.GetString("requester")
		debug, err := modeFlag(cmd)
		if err != nil {
			return err
		}
		opts.Debug = debug
		return client(cmd).Trigger(cmd.Context(), opts)
	},
}

var voeventCmd = &cobra.Command{
	Use:   "voevent STATION FILE",
	Short: "Submit a VOEvent packet (FILE - reads stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetInt("duration")
		debug, err := modeFlag(cmd)
		if err != nil {
			return err
		}
		return client(cmd).VOEvent(cmd.Context(), ctl.VOEventOptions{
			Station:         args[0],
			File:            args[1],
			DurationSeconds: duration,
			Debug:           debug,
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Refuse trigger requests until resumed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client(cmd).Pause(cmd.Context())
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Accept trigger requests again",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client(cmd).Resume(cmd.Context())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live events from the daemon (Ctrl-C to stop)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, _ := cmd.Flags().GetStringSlice("filter")
		return client(cmd).Watch(cmd.Context(), ctl.WatchOptions{Filter: filter})
	},
}

// modeFlag turns --live/--debug into the optional debug field.
func modeFlag(cmd *cobra.Command) (*bool, error) {
	live, _ := cmd.Flags().GetBool("live")
	debug, _ := cmd.Flags().GetBool("debug")
	switch {
	case live && debug:
		return nil, fmt.Errorf("--live and --debug are mutually exclusive")
	case live:
		v := false
		return &v, nil
	case debug:
		v := true
		return &v, nil
	default:
		return nil, nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "http://127.0.0.1:8080", "triggerd base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output raw JSON instead of formatted text")

	stationCmd.Flags().Bool("probe", false, "Query live availability (may contact the station)")

	visibilityCmd.Flags().Int("duration", 0, "Observation length in seconds (daemon default when 0)")
	visibilityCmd.Flags().String("at", "", "Window start, RFC 3339 (now when empty)")
	visibilityCmd.Flags().String("calibrator", "", "Only consider this calibrator (e.g. 3C295)")

	for _, c := range []*cobra.Command{triggerCmd, voeventCmd} {
		c.Flags().Int("duration", 0, "Observation length in seconds (daemon default when 0)")
		c.Flags().Bool("live", false, "Send the observation to the station")
		c.Flags().Bool("debug", false, "Dry run: compose and notify but send nothing")
	}
	triggerCmd.Flags().String("kind", "", "Alert kind: swift_grb, fermi_grb or manual (inferred from --ivorn)")
	triggerCmd.Flags().String("ivorn", "", "IVORN of the alert")
	triggerCmd.Flags().String("action", "", "Override the station's default action")
	triggerCmd.Flags().String("requester", "", "Override the station's default requester")

	watchCmd.Flags().StringSlice("filter", nil, "Event types to show (heartbeat,state,log,stage,request)")

	rootCmd.AddCommand(statusCmd, healthCmd, versionCmd, configCmd, stationsCmd, stationCmd,
		visibilityCmd, triggerCmd, voeventCmd, pauseCmd, resumeCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
