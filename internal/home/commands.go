package home

import (
	"fmt"

	"github.com/AdguardTeam/golibs/log"
	"github.com/spf13/cobra"
)

// rootCmd returns the root command with all subcommands.  The defaults of the
// flags come from the environment.
func (a *app) rootCmd() (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:   "dhcpsuperv",
		Short: "Manage static DHCP reservations on dnsmasq servers",
		Long: `Manage static DHCP reservations (dhcp-host lines) in the dnsmasq hosts
files of several servers, reached over SSH.

Environment:
  DHCPSUPERV_CONFIG       path to the configuration file
  DHCPSUPERV_KEY_FILE     path to the SSH private key
  DHCPSUPERV_PASSPHRASE   passphrase of the SSH private key
  DHCPSUPERV_KNOWN_HOSTS  path to the known hosts file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.verbose {
				log.SetLevel(log.DEBUG)
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.confPath, "config", "c", a.env.ConfigPath, "path to the configuration file")
	flags.StringVarP(&a.keyFile, "key", "k", a.env.KeyFile, "path to the SSH private key")
	flags.StringVar(&a.knownHosts, "known-hosts", a.env.KnownHosts, "path to the known hosts file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.local, "local", false, "edit the hosts file of this machine instead of connecting")

	cmd.AddCommand(
		a.addCmd(),
		a.removeCmd(),
		a.listCmd(),
		a.checkCmd(),
		a.initCmd(),
	)

	return cmd
}

func (a *app) addCmd() (cmd *cobra.Command) {
	return &cobra.Command{
		Use:     "add MAC IP",
		Short:   "Reserve an IP address for a MAC address",
		Example: "  dhcpsuperv add 00:1a:2b:3c:4d:5e 10.20.1.60",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			svc, err := a.service()
			if err != nil {
				return err
			}

			res, err := svc.Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			verb := "Added"
			if res.Replaced {
				verb = "Updated"
			}

			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s DHCP reservation %s -> %s on server %s\n",
				verb,
				res.Reservation.MAC,
				res.Reservation.IP,
				res.Server.Addr,
			)

			return nil
		},
	}
}

func (a *app) removeCmd() (cmd *cobra.Command) {
	return &cobra.Command{
		Use:     "remove MAC",
		Short:   "Remove the reservations of a MAC address",
		Example: "  dhcpsuperv remove 00:1a:2b:3c:4d:5e",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			svc, err := a.service()
			if err != nil {
				return err
			}

			srv, err := svc.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed DHCP reservation for %s on %s\n", args[0], srv.Addr)

			return nil
		},
	}
}

func (a *app) listCmd() (cmd *cobra.Command) {
	return &cobra.Command{
		Use:   "list [SERVER|NETWORK]",
		Short: "List the reservations of all or one server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			svc, err := a.service()
			if err != nil {
				return err
			}

			sets, err := svc.List(cmd.Context(), target(args))
			if err != nil {
				return err
			}

			if printList(cmd.OutOrStdout(), cmd.ErrOrStderr(), sets) {
				return errServersFailed
			}

			return nil
		},
	}
}

func (a *app) checkCmd() (cmd *cobra.Command) {
	return &cobra.Command{
		Use:   "check [SERVER|NETWORK]",
		Short: "Report duplicate MAC and IP addresses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			svc, err := a.service()
			if err != nil {
				return err
			}

			reps, err := svc.Check(cmd.Context(), target(args))
			if err != nil {
				return err
			}

			if printCheck(cmd.OutOrStdout(), cmd.ErrOrStderr(), reps) {
				return errServersFailed
			}

			return nil
		},
	}
}

func (a *app) initCmd() (cmd *cobra.Command) {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a minimal configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			err = writeInitialConfig(a.confPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file %s\n", a.confPath)

			return nil
		},
	}
}

// target returns the optional target argument.
func target(args []string) (t string) {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
