package cmd

import (
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"freettes/calculator"
	"freettes/server"
	"freettes/store"
)

var addr string

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides [server] addr")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scenario runs over websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if addr == "" {
			addr = App.Addr
		}
		upgrader := websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		}
		s := server.NewServer(addr, upgrader, calculator.NewSimulator(Config))

		files, err := store.NewFileStore(App.StoreDir, Config.ShellHeight)
		if err != nil {
			return err
		}
		s.Files = files
		if App.HistoryPath != "" {
			h, err := store.OpenHistory(App.HistoryPath)
			if err != nil {
				return err
			}
			defer h.Close()
			s.History = h
		}
		return s.Serve(ctx)
	},
}
