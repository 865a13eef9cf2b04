package cmd

import (
	"sonata/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动Sonata服务器",
	Long:  `启动Sonata音乐系统的HTTP服务器，提供API服务与播放引擎WebSocket通道`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
