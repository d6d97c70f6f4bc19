// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pingcap/timysql/lib/config"
	"github.com/pingcap/timysql/lib/util/logger"
	"github.com/pingcap/timysql/pkg/client"
	"github.com/pingcap/timysql/pkg/proto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cfg := config.NewClient()
	var configFile, logLevel string

	rootCmd := &cobra.Command{
		Use:          os.Args[0],
		Short:        "interact with a MySQL compatible server",
		SilenceUsage: true,
	}
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "client config file path")
	rootCmd.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "server address")
	rootCmd.PersistentFlags().StringVarP(&cfg.Username, "username", "u", "root", "user name")
	rootCmd.PersistentFlags().StringVarP(&cfg.Password, "password", "p", "", "password")
	rootCmd.PersistentFlags().StringVarP(&cfg.DB, "db", "D", "", "default database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	connect := func(cmd *cobra.Command) (*client.Conn, *zap.Logger, error) {
		if configFile != "" {
			fileCfg, err := config.LoadClientFile(configFile)
			if err != nil {
				return nil, nil, err
			}
			cfg = fileCfg
		}
		lg, err := logger.NewLogger(logLevel)
		if err != nil {
			return nil, nil, err
		}
		conn, err := client.Connect(cmd.Context(), cfg, lg)
		if err != nil {
			return nil, nil, err
		}
		return conn, lg, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "check that the server is alive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, lg, err := connect(cmd)
			if err != nil {
				return err
			}
			defer closeConn(conn, lg)
			if err := conn.Ping(); err != nil {
				return err
			}
			cmd.Println("pong")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "query <sql>",
		Short: "run a statement through the text protocol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, lg, err := connect(cmd)
			if err != nil {
				return err
			}
			defer closeConn(conn, lg)
			rs, err := conn.Query(args[0])
			if err != nil {
				return err
			}
			return printResultSet(cmd, rs)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "exec <sql> [arg...]",
		Short: "prepare a statement and execute it with the given arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, lg, err := connect(cmd)
			if err != nil {
				return err
			}
			defer closeConn(conn, lg)
			stmt, err := conn.Prepare(args[0])
			if err != nil {
				return err
			}
			defer func() {
				if err := stmt.Close(); err != nil {
					lg.Warn("closing statement failed", zap.Error(err))
				}
			}()
			params := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				params = append(params, arg)
			}
			rs, err := stmt.Execute(params...)
			if err != nil {
				return err
			}
			return printResultSet(cmd, rs)
		},
	})

	runRootCommand(rootCmd)
}

func closeConn(conn *client.Conn, lg *zap.Logger) {
	if err := conn.Close(); err != nil {
		lg.Warn("closing connection failed", zap.Error(err))
	}
}

func printResultSet(cmd *cobra.Command, rs *client.ResultSet) error {
	columns := rs.Columns()
	if len(columns) == 0 {
		cmd.Printf("OK, %d rows affected\n", rs.AffectedRows())
		return nil
	}
	names := make([]string, 0, len(columns))
	for _, cd := range columns {
		names = append(names, cd.Name)
	}
	cmd.Println(strings.Join(names, "\t"))
	for {
		row, err := rs.Next()
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		cmd.Println(formatRow(row))
	}
}

func runRootCommand(rootCmd *cobra.Command) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sc := make(chan os.Signal, 1)
		signal.Notify(sc,
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGQUIT,
		)

		// wait for quit signals
		<-sc
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}
}

func formatRow(row []proto.FieldValue) string {
	fields := make([]string, 0, len(row))
	for i := range row {
		fv := &row[i]
		switch fv.Type {
		case proto.FieldValueNull:
			fields = append(fields, "NULL")
		case proto.FieldValueUnsigned:
			fields = append(fields, strconv.FormatUint(fv.AsUint64(), 10))
		case proto.FieldValueSigned:
			fields = append(fields, strconv.FormatInt(fv.AsInt64(), 10))
		case proto.FieldValueFloat:
			fields = append(fields, strconv.FormatFloat(fv.AsFloat64(), 'g', -1, 64))
		case proto.FieldValueDateTime:
			dt := fv.AsDateTime()
			fields = append(fields, fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d",
				dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, dt.Microsecond))
		case proto.FieldValueDuration:
			d := fv.AsDuration()
			sign := ""
			if d.IsNegative {
				sign = "-"
			}
			fields = append(fields, fmt.Sprintf("%s%02d:%02d:%02d.%06d",
				sign, uint32(d.Hour)+d.Days*24, d.Minute, d.Second, d.Microsecond))
		default:
			fields = append(fields, fv.AsString())
		}
	}
	return strings.Join(fields, "\t")
}
