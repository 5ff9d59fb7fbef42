package cmd

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/net"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List capturable network interfaces",
	Long:  "List host network interfaces and their addresses, to help pick the --interface value for identify.",
	RunE:  runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("listing interfaces: %w", err)
	}

	for _, iface := range ifaces {
		fmt.Printf("%s\n", iface.Name)
		for _, addr := range iface.Addrs {
			fmt.Printf("  %s\n", addr.Addr)
		}
	}
	return nil
}
