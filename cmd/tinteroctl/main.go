// tinteroctl es el CLI de operación del servicio: health y
// publicación de ediciones desde la terminal.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL  string
	Username string
	Password string
	HTTP     *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	var v any
	if json.Unmarshal(body, &v) == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	cli := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}

	root := &cobra.Command{
		Use:   "tinteroctl",
		Short: "Operación del servicio de boletines",
	}
	root.PersistentFlags().StringVar(&cli.BaseURL, "base-url", envOr("TINTERO_BASE_URL", "http://localhost:8000"), "URL base del servicio")
	root.PersistentFlags().StringVar(&cli.Username, "username", os.Getenv("TINTERO_USERNAME"), "username del editor")
	root.PersistentFlags().StringVar(&cli.Password, "password", os.Getenv("TINTERO_PASSWORD"), "contraseña del editor")

	root.AddCommand(healthCmd(cli))
	root.AddCommand(publishCmd(cli))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func healthCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Chequea el estado del servicio",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cli.do(http.MethodGet, "/health/ready", nil)
			if err != nil {
				return err
			}
			cli.print(status, body)
			if status != http.StatusOK {
				return fmt.Errorf("servicio no saludable (status=%d)", status)
			}
			return nil
		},
	}
}

func publishCmd(cli *client) *cobra.Command {
	var (
		title    string
		htmlFile string
		textFile string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publica una edición a los suscriptores confirmados",
		RunE: func(cmd *cobra.Command, args []string) error {
			htmlBody, err := os.ReadFile(htmlFile)
			if err != nil {
				return fmt.Errorf("html: %w", err)
			}
			textBody, err := os.ReadFile(textFile)
			if err != nil {
				return fmt.Errorf("text: %w", err)
			}

			payload, err := json.Marshal(map[string]any{
				"title": title,
				"content": map[string]string{
					"html": string(htmlBody),
					"text": string(textBody),
				},
			})
			if err != nil {
				return err
			}

			status, body, err := cli.do(http.MethodPost, "/newsletters", payload)
			if err != nil {
				return err
			}
			cli.print(status, body)
			if status != http.StatusOK {
				return fmt.Errorf("publicación rechazada (status=%d)", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "asunto de la edición")
	cmd.Flags().StringVar(&htmlFile, "html", "", "archivo con el cuerpo HTML")
	cmd.Flags().StringVar(&textFile, "text", "", "archivo con el cuerpo en texto plano")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("html")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}
