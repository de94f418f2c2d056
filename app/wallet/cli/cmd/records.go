package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	recipient string
	studentID string
	classID   string
	courseID  string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Record the wallet's student registering for a class",
	Run:   registerRun,
}

var attendCmd = &cobra.Command{
	Use:   "attend",
	Short: "Record the wallet's student attending a course with a class",
	Run:   attendRun,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Address of the teacher receiving the record.")
	registerCmd.Flags().StringVarP(&studentID, "student", "s", "", "Student id.")
	registerCmd.Flags().StringVarP(&classID, "class", "c", "", "Class id.")

	rootCmd.AddCommand(attendCmd)
	attendCmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Address of the teacher receiving the record.")
	attendCmd.Flags().StringVarP(&studentID, "student", "s", "", "Student id.")
	attendCmd.Flags().StringVarP(&courseID, "course", "c", "", "Course id.")
	attendCmd.Flags().StringVar(&classID, "class", "", "Class id.")
}

func registerRun(cmd *cobra.Command, args []string) {
	_, address, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	reg := struct {
		Recipient      string `json:"recipient"`
		StudentID      string `json:"studentId"`
		StudentAddress string `json:"studentAddress"`
		ClassID        string `json:"classId"`
	}{
		Recipient:      recipient,
		StudentID:      studentID,
		StudentAddress: address,
		ClassID:        classID,
	}

	submitRecord("/v1/tx/registration", reg)
}

func attendRun(cmd *cobra.Command, args []string) {
	_, address, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	att := struct {
		Recipient      string `json:"recipient"`
		StudentID      string `json:"studentId"`
		StudentAddress string `json:"studentAddress"`
		CourseID       string `json:"courseId"`
		ClassID        string `json:"classId"`
	}{
		Recipient:      recipient,
		StudentID:      studentID,
		StudentAddress: address,
		CourseID:       courseID,
		ClassID:        classID,
	}

	submitRecord("/v1/tx/attendance", att)
}

func submitRecord(path string, record any) {
	var resp struct {
		Status string `json:"status"`
		TxID   string `json:"txId"`
	}
	if err := send(http.MethodPost, path, record, &resp); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s: %s\n", resp.Status, resp.TxID)
}
