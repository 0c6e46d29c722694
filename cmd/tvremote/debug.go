package main

import (
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/spf13/cobra"

	"github.com/dstrants/tvremote/internal/discovery"
)

var debugBrowseTimeout time.Duration

var debugDiscoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "List interfaces and browse for advertised tvremote APIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()

		// 1. List interfaces
		ifaces, err := net.Interfaces()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Network Interfaces:")
		for _, iface := range ifaces {
			addrs, _ := iface.Addrs()
			fmt.Fprintf(w, "- %s (Flags: %v)\n", iface.Name, iface.Flags)
			for _, addr := range addrs {
				fmt.Fprintf(w, "  - %s\n", addr.String())
			}
		}
		fmt.Fprintln(w)

		// 2. Browse
		fmt.Fprintf(w, "Browsing %s for %s...\n", discovery.ServiceType, debugBrowseTimeout)
		entries := make(chan *mdns.ServiceEntry, 16)
		done := make(chan struct{})
		found := 0
		go func() {
			defer close(done)
			for e := range entries {
				found++
				fmt.Fprintf(w, "- %s  %s:%d  %v\n", e.Name, e.AddrV4, e.Port, e.InfoFields)
			}
		}()

		params := mdns.DefaultParams(discovery.ServiceType)
		params.Entries = entries
		params.Timeout = debugBrowseTimeout
		params.DisableIPv6 = true
		err = mdns.Query(params)
		close(entries)
		<-done
		if err != nil {
			return fmt.Errorf("mdns query: %w", err)
		}
		if found == 0 {
			fmt.Fprintln(w, "No services found.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugDiscoveryCmd)
	debugDiscoveryCmd.Flags().DurationVar(&debugBrowseTimeout, "wait", 3*time.Second, "How long to browse")
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug utilities",
}
