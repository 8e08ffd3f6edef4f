package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "quilt-mcp-server",
	Short: "MCP server exposing Quilt catalog search, packaging, and governance tools",
	Long: `quilt-mcp-server is an MCP (Model Context Protocol) server that lets an
assistant search, browse, and write Quilt packages, probe S3 bucket
permissions, and administer catalog governance, all behind JWT-authenticated
tool calls.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.quilt-mcp-server.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("registry", "", "default registry bucket used when a tool call doesn't resolve one (or set DEFAULT_REGISTRY)")
	rootCmd.PersistentFlags().String("catalog-url", "", "Quilt catalog URL (or set QUILT_CATALOG_URL)")
	rootCmd.PersistentFlags().String("aws-region", "", "AWS region (or set AWS_REGION / AWS_DEFAULT_REGION)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("DEFAULT_REGISTRY", rootCmd.PersistentFlags().Lookup("registry"))
	viper.BindPFlag("QUILT_CATALOG_URL", rootCmd.PersistentFlags().Lookup("catalog-url"))
	viper.BindPFlag("AWS_REGION", rootCmd.PersistentFlags().Lookup("aws-region"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(permissionsCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".quilt-mcp-server")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}
