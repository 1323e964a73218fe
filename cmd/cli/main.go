package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledger-cli",
		Short: "Ledger CLI tool",
		Long:  `A command line interface for interacting with the ledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	// Transaction commands
	txCmd := &cobra.Command{
		Use:   "transaction",
		Short: "Transaction operations",
	}

	balanceCmd := &cobra.Command{
		Use:   "balance <transaction-id>",
		Short: "Check that a transaction's journal entries balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			checkBalance(args[0])
		},
	}

	var reversedBy, reason string
	reverseCmd := &cobra.Command{
		Use:   "reverse <transaction-id>",
		Short: "Reverse a transaction's posted journal entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			reverseTransaction(args[0], reversedBy, reason)
		},
	}
	reverseCmd.Flags().StringVar(&reversedBy, "by", "", "User performing the reversal (required)")
	reverseCmd.Flags().StringVar(&reason, "reason", "", "Reason for the reversal")
	reverseCmd.MarkFlagRequired("by")

	txCmd.AddCommand(balanceCmd, reverseCmd)
	rootCmd.AddCommand(txCmd)

	// Journal commands
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Journal entry operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <journal-entry-id>",
		Short: "Fetch a journal entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJournalEntry(args[0])
		},
	}

	journalCmd.AddCommand(getCmd)
	rootCmd.AddCommand(journalCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func checkBalance(transactionID string) {
	body := request(http.MethodGet, "/api/v1/transactions/"+transactionID+"/balance", nil)

	var result struct {
		TransactionID string `json:"transactionId"`
		IsBalanced    bool   `json:"isBalanced"`
		Journals      []struct {
			JournalEntryID string `json:"journalEntryId"`
			IsBalanced     bool   `json:"isBalanced"`
		} `json:"journals"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if result.IsBalanced {
		fmt.Printf("Transaction %s is BALANCED (%d journal entries)\n", result.TransactionID, len(result.Journals))
		return
	}

	fmt.Printf("Transaction %s is UNBALANCED\n", result.TransactionID)
	for _, j := range result.Journals {
		if !j.IsBalanced {
			fmt.Printf("  journal %s: unbalanced\n", j.JournalEntryID)
		}
	}
	os.Exit(1)
}

func reverseTransaction(transactionID, reversedBy, reason string) {
	payload, _ := json.Marshal(map[string]string{
		"reversedBy": reversedBy,
		"reason":     reason,
	})

	body := request(http.MethodPost, "/api/v1/transactions/"+transactionID+"/reverse", payload)

	var result struct {
		ReversedCount int `json:"reversedCount"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Reversed %d journal entries for transaction %s\n", result.ReversedCount, transactionID)
}

func getJournalEntry(id string) {
	body := request(http.MethodGet, "/api/v1/journal-entries/"+id, nil)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

func request(method, path string, payload []byte) []byte {
	client := &http.Client{Timeout: timeout}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	return body
}
